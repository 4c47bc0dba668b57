package orderitem

import (
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
)

// OrderItem represents a line of an order as mirrored from the POS.
type OrderItem struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	ProductID     *string              `json:"product_id"`
	Name          string               `json:"name"`
	Quantity      int                  `json:"quantity"`
	KitchenStatus kitchenstatus.Status `json:"kitchen_status"`
	Note          string               `json:"note"`
	Shown         bool                 `json:"shown"`
	LastUpdated   time.Time            `json:"last_updated"`
	Subitems      []Subitem            `json:"order_item_subitems,omitempty"`
}

// Subitem is a customization attached to an order item.
type Subitem struct {
	ID          string `json:"id"`
	OrderItemID string `json:"order_item_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
}

// Upstream is an order item as delivered by the POS before status resolution.
type Upstream struct {
	ID            string
	ProductID     *string
	Name          string
	Quantity      int
	KitchenStatus string
	Note          string
	Subitems      []Subitem
}
