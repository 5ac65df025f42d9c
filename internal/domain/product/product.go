// Package product defines the normalized search result shown to users and
// the conversion from raw backend records.
package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ImagePathPrefix is the path the front end serves product images from when
// the backend does not provide an explicit image URL.
const ImagePathPrefix = "/image/"

// Product is a normalized search hit.
type Product struct {
	ID                 string  `json:"id"`
	ProductDisplayName string  `json:"productDisplayName"`
	Similarity         float64 `json:"similarity"`
	ImageURL           string  `json:"imageUrl"`
	MasterCategory     string  `json:"masterCategory,omitempty"`
	SubCategory        string  `json:"subCategory,omitempty"`
	BaseColour         string  `json:"baseColour,omitempty"`
}

// HasImage reports whether the product carries an image URL.
func (p Product) HasImage() bool { return strings.TrimSpace(p.ImageURL) != "" }

// Record is a product as returned by the backend, before normalization.
type Record struct {
	ID                 ID       `json:"id"`
	ProductDisplayName string   `json:"productDisplayName"`
	Similarity         *float64 `json:"similarity"`
	ImageURL           *string  `json:"imageUrl"`
	MasterCategory     string   `json:"masterCategory"`
	SubCategory        string   `json:"subCategory"`
	BaseColour         string   `json:"baseColour"`
}

// ID is a product identifier that accepts both JSON strings and numbers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	s, err := numberString(string(data))
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ID(s)
	return nil
}

// numberString renders a JSON number the way JavaScript's String(n) does:
// int64 values exactly, other values as shortest round-trip decimals with
// exponent form outside [1e-6, 1e21).
func numberString(raw string) (string, error) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q", raw)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("invalid number %q", raw)
	}
	if f == 0 {
		return "0", nil
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		// Go pads the exponent to two digits; JavaScript does not.
		mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits, nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// ImageURLFor derives the fallback image location for a product id.
func ImageURLFor(id string) string {
	return ImagePathPrefix + url.PathEscape(id)
}

// Normalize converts a raw record into a Product. It is pure: the same record
// always yields the same Product.
func Normalize(r Record) Product {
	id := string(r.ID)
	p := Product{
		ID:                 id,
		ProductDisplayName: r.ProductDisplayName,
		MasterCategory:     r.MasterCategory,
		SubCategory:        r.SubCategory,
		BaseColour:         r.BaseColour,
	}
	if r.Similarity != nil {
		p.Similarity = *r.Similarity
	}
	if r.ImageURL != nil && strings.TrimSpace(*r.ImageURL) != "" {
		p.ImageURL = *r.ImageURL
	} else {
		p.ImageURL = ImageURLFor(id)
	}
	return p
}

// NormalizeAll normalizes records preserving order. Never returns nil.
func NormalizeAll(records []Record) []Product {
	out := make([]Product, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

// SameIDs reports whether two lists hold the same ids in the same order.
func SameIDs(a, b []Product) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
