package pricing

import (
	"strconv"

	"github.com/utafrali/rxstore/internal/domain"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/validator"
)

// CodeInvalidPostalCode rejects a CEP that is not exactly 8 digits.
const CodeInvalidPostalCode = "INVALID_POSTAL_CODE"

// Prices used when a matching zone leaves a tier unset, and when no zone
// matches at all.
const (
	zoneStandardPrice    int64 = 1599
	zoneExpressPrice     int64 = 2999
	zoneStandardDays           = "5-7 dias úteis"
	zoneExpressDays            = "2-3 dias úteis"
	defaultStandardPrice int64 = 1999
	defaultExpressPrice  int64 = 3999
	defaultStandardDays        = "7-10 dias úteis"
	defaultExpressDays         = "3-5 dias úteis"
)

// NormalizePostalCode strips formatting from a CEP and requires exactly 8
// digits.
func NormalizePostalCode(cep string) (string, error) {
	digits := validator.Digits(cep)
	if len(digits) != 8 {
		return "", apperrors.Rejected(CodeInvalidPostalCode, "Digite um CEP válido (8 dígitos)")
	}
	return digits, nil
}

// MatchZone returns the first zone with a range containing cep, compared
// numerically with inclusive bounds. Ranges that do not parse never match.
func MatchZone(zones []domain.ShippingZone, cep string) *domain.ShippingZone {
	n, err := strconv.Atoi(cep)
	if err != nil {
		return nil
	}
	for i := range zones {
		for _, r := range zones[i].PostalRanges {
			start, err1 := strconv.Atoi(validator.Digits(r.Start))
			end, err2 := strconv.Atoi(validator.Digits(r.End))
			if err1 != nil || err2 != nil {
				continue
			}
			if n >= start && n <= end {
				return &zones[i]
			}
		}
	}
	return nil
}

// ResolveShipping quotes the standard and express options for a normalized
// CEP. It never picks one; selection is up to the shopper.
func ResolveShipping(zones []domain.ShippingZone, cep string) []domain.ShippingOption {
	zone := MatchZone(zones, cep)
	if zone == nil {
		return []domain.ShippingOption{
			standardOption(defaultStandardPrice, defaultStandardDays, ""),
			expressOption(defaultExpressPrice, defaultExpressDays, ""),
		}
	}
	return []domain.ShippingOption{
		standardOption(orInt(zone.StandardPrice, zoneStandardPrice), orString(zone.StandardDays, zoneStandardDays), zone.ID),
		expressOption(orInt(zone.ExpressPrice, zoneExpressPrice), orString(zone.ExpressDays, zoneExpressDays), zone.ID),
	}
}

// FindOption returns the quoted option with the given id.
func FindOption(options []domain.ShippingOption, id domain.ShippingTier) (*domain.ShippingOption, bool) {
	for i := range options {
		if options[i].ID == id {
			opt := options[i]
			return &opt, true
		}
	}
	return nil, false
}

func standardOption(price int64, days, zoneID string) domain.ShippingOption {
	return domain.ShippingOption{
		ID:          domain.ShippingStandard,
		Name:        "Entrega Padrão",
		Price:       price,
		Days:        days,
		Description: "Correios - PAC",
		ZoneID:      zoneID,
	}
}

func expressOption(price int64, days, zoneID string) domain.ShippingOption {
	return domain.ShippingOption{
		ID:          domain.ShippingExpress,
		Name:        "Entrega Expressa",
		Price:       price,
		Days:        days,
		Description: "Correios - SEDEX",
		ZoneID:      zoneID,
	}
}

func orInt(v, fallback int64) int64 {
	if v == 0 {
		return fallback
	}
	return v
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
