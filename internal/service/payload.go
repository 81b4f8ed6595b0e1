package service

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ProductPayload is the request body of create and full update.
type ProductPayload struct {
	Name        string  `json:"name"        validate:"required,max=255"`
	Description string  `json:"description" validate:"required"`
	Price       *Price  `json:"price"       validate:"required,gte=0"`
	Image       *string `json:"image"`
}

// Normalize trims name and description and turns an empty image into no image.
// It must run before validation so that blank strings count as missing.
func (p *ProductPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Image != nil && strings.TrimSpace(*p.Image) == "" {
		p.Image = nil
	}
}

// Price is a product price. On the wire it is accepted as a JSON number or a numeric string.
type Price float64

var errInvalidPrice = errors.New("price must be a finite number")

// NewPrice returns a pointer to a Price holding v.
func NewPrice(v float64) *Price {
	p := Price(v)
	return &p
}

// UnmarshalJSON accepts a JSON number or a string holding one. NaN and infinities are rejected.
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return errInvalidPrice
	}
	*p = Price(v)
	return nil
}

// Float64 returns the price value; a nil price is zero.
func (p *Price) Float64() float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}
