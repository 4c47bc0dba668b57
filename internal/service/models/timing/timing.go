package timing

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Status is the lifecycle state of an order timing record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusWarning   Status = "warning"
	StatusArchived  Status = "archived"
)

var (
	ErrInvalidStatus = errors.New("invalid timing status")
	ErrNotFound      = errors.New("order timing not found")
	ErrNotInWarning  = errors.New("order timing is not in warning")
)

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a stored timing status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusCompleted, StatusWarning, StatusArchived:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// OrderTiming tracks preparation timestamps of one order. Durations are whole seconds.
type OrderTiming struct {
	OrderID           string     `json:"order_id"`
	TableName         string     `json:"table_name"`
	DeliveryService   string     `json:"delivery_service"`
	CreatedAt         time.Time  `json:"created_at"`
	FirstItemStarted  *time.Time `json:"first_item_started"`
	AllItemsCompleted *time.Time `json:"all_items_completed"`
	PassedAt          *time.Time `json:"passed_at"`
	TotalItems        int        `json:"total_items"`
	PreparationTime   *int64     `json:"preparation_time"`
	TotalTime         *int64     `json:"total_time"`
	WaitingTime       *int64     `json:"waiting_time"`
	Status            Status     `json:"status"`
	WarningReason     string     `json:"warning_reason"`
	// EscalatedAt is set by the first automatic escalation and never cleared, so a
	// reopened warning is not escalated again.
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

// Seconds returns the floored whole seconds between from and to.
func Seconds(from, to time.Time) int64 {
	return int64(math.Floor(to.Sub(from).Seconds()))
}

// Stats summarizes the timings of orders created within a day.
type Stats struct {
	Day                string  `json:"day"`
	TotalOrders        int64   `json:"total_orders"`
	AvgPreparationTime float64 `json:"avg_preparation_time"`
	OrdersUnder15Min   int64   `json:"orders_under_15min"`
	OrdersOver30Min    int64   `json:"orders_over_30min"`
	WarningCount       int64   `json:"warning_count"`
}
