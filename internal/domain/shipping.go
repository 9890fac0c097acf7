package domain

import "time"

// PostalRange is an inclusive range of 8-digit CEPs.
type PostalRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ShippingZone prices delivery for the CEPs it covers. Zero prices and empty
// day strings mean "use the storefront default" for that tier.
// FreeShippingMinimum is kept for the back-office and is not applied when
// quoting.
type ShippingZone struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	States              []string      `json:"states"`
	PostalRanges        []PostalRange `json:"postal_ranges"`
	StandardPrice       int64         `json:"standard_price"`
	ExpressPrice        int64         `json:"express_price"`
	StandardDays        string        `json:"standard_days,omitempty"`
	ExpressDays         string        `json:"express_days,omitempty"`
	FreeShippingMinimum int64         `json:"free_shipping_minimum,omitempty"`
	Position            int           `json:"position"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

type ShippingTier string

const (
	ShippingStandard ShippingTier = "standard"
	ShippingExpress  ShippingTier = "express"
)

// ShippingOption is one quoted delivery choice.
type ShippingOption struct {
	ID          ShippingTier `json:"id"`
	Name        string       `json:"name"`
	Price       int64        `json:"price"`
	Days        string       `json:"days"`
	Description string       `json:"description"`
	ZoneID      string       `json:"zone_id,omitempty"`
}

// ShippingQuote is the last quote computed for a session and the option the
// shopper picked from it, if any.
type ShippingQuote struct {
	PostalCode string           `json:"postal_code"`
	Options    []ShippingOption `json:"options"`
	Selected   *ShippingOption  `json:"selected,omitempty"`
}
