package orderitem

import (
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
)

// QueryOrderItemsModel represents filter parameters for querying order items.
// Zero times leave the window open on that side.
type QueryOrderItemsModel struct {
	Ids         []string
	OrderIds    []string
	ProductIds  []string
	Statuses    []kitchenstatus.Status
	UpdatedFrom time.Time
	UpdatedTo   time.Time
}

// UpdateStatusModel selects the items a status write applies to.
// At least one of Ids, OrderIds or ProductIds must be set.
type UpdateStatusModel struct {
	Ids          []string
	OrderIds     []string
	ProductIds   []string
	FromStatuses []kitchenstatus.Status
	To           kitchenstatus.Status
	At           time.Time
}

// Empty reports whether the model selects nothing.
func (m UpdateStatusModel) Empty() bool {
	return len(m.Ids) == 0 && len(m.OrderIds) == 0 && len(m.ProductIds) == 0
}
