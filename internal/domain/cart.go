package domain

import "time"

// Cart is the ledger of one shopper session: an ordered list of lines,
// unique by product.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem snapshots the product as it was when first added.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is price times quantity, in cents.
func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// NewCart returns an empty ledger for the session.
func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []CartItem{}}
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart: a new line with quantity 1, or +1 on
// the existing line. It returns the resulting line.
func (c *Cart) Add(p Product) CartItem {
	if i := c.indexOf(p.ID); i >= 0 {
		c.Items[i].Quantity++
		return c.Items[i]
	}
	item := CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		ImageURL:  p.ImageURL,
		Price:     p.Price,
		Quantity:  1,
	}
	c.Items = append(c.Items, item)
	return item
}

// Remove drops the product's line. It reports whether a line existed.
func (c *Cart) Remove(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes the line. It
// reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID string, qty int) bool {
	if qty <= 0 {
		return c.Remove(productID)
	}
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = qty
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
