package pos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Text is a scalar the POS sends either as a JSON string or as a bare number.
// null decodes to the empty value.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported scalar %s: %w", data, err)
		}
		*t = Text(n.String())
	}

	return nil
}

func (t Text) String() string {
	return string(t)
}

// Ptr returns nil for the empty value.
func (t Text) Ptr() *string {
	if t == "" {
		return nil
	}
	s := string(t)

	return &s
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data     []T  `json:"data"`
	NextPage Text `json:"nextPage"`
}

// Next returns the next page number, or 0 when the listing ends.
func (p Page[T]) Next() int {
	n, err := strconv.Atoi(p.NextPage.String())
	if err != nil || n <= 0 {
		return 0
	}

	return n
}

type tokenRequest struct {
	CloudID string `json:"_cloudId"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Order is an order as listed by the POS.
type Order struct {
	ID      Text      `json:"id"`
	Created time.Time `json:"created"`
	Note    string    `json:"note"`
	TableID Text      `json:"_tableId"`
}

// Customization is an item modifier, stored locally as a sub-item.
type Customization struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// OrderItem is an order line as listed by the POS.
type OrderItem struct {
	ID             Text            `json:"id"`
	OrderID        Text            `json:"_orderId"`
	ProductID      Text            `json:"_productId"`
	Name           string          `json:"name"`
	Quantity       float64         `json:"quantity"`
	KitchenStatus  Text            `json:"kitchenStatus"`
	Note           string          `json:"note"`
	Customizations []Customization `json:"orderItemCustomizations"`
}

// Table is the subset of a POS table the kitchen needs.
type Table struct {
	Name string `json:"name"`
}

// Product is a catalogue entry as listed by the POS.
type Product struct {
	ID         Text   `json:"id"`
	Name       string `json:"name"`
	CategoryID Text   `json:"_categoryId"`
}

// Quantity rounds a POS quantity to whole units. Any positive quantity yields at
// least one unit so fractional lines still reach the kitchen.
func Quantity(q float64) int {
	if q <= 0 || math.IsNaN(q) {
		return 0
	}

	return max(int(math.Round(q)), 1)
}
