package timingsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/itimingrepo"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultWarningAfter = 30 * time.Minute
	resolvedReason      = "resolved by admin"
)

type orderReader interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

type itemCounter interface {
	CountByOrder(ctx context.Context, orderID string) (int, error)
}

// TimingService records per-order preparation timestamps and durations.
// Updates are read-modify-write without row locking; timing data is advisory.
type TimingService struct {
	timingRepo   itimingrepo.ITimingRepository
	orders       orderReader
	items        itemCounter
	warningAfter time.Duration
	now          func() time.Time
}

// option is a function that configures the TimingService.
type option func(*TimingService)

// MustNewTimingService creates a new TimingService.
func MustNewTimingService(opts ...option) *TimingService {
	s := &TimingService{
		warningAfter: defaultWarningAfter,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.timingRepo == nil || s.orders == nil {
		panic("timingsvc: timing and order repositories are required")
	}

	return s
}

// WithTimingRepository sets the order timing repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimingRepository(repo itimingrepo.ITimingRepository) option {
	return func(s *TimingService) {
		s.timingRepo = repo
	}
}

// WithOrderRepository sets the source of order creation data.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo orderReader) option {
	return func(s *TimingService) {
		s.orders = repo
	}
}

// WithItemCounter sets the source of total_items. Without it total_items stays zero.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithItemCounter(counter itemCounter) option {
	return func(s *TimingService) {
		s.items = counter
	}
}

// WithWarningAfter sets how long an unfinished order may run before it escalates.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWarningAfter(d time.Duration) option {
	return func(s *TimingService) {
		if d > 0 {
			s.warningAfter = d
		}
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *TimingService) {
		s.now = now
	}
}

// StartPreparation stamps first_item_started and waiting_time. The first call wins.
func (s *TimingService) StartPreparation(ctx context.Context, orderID string) error {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.StartPreparation")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	now := s.now()

	existing, err := s.timingRepo.Get(ctx, orderID)
	switch {
	case err == nil:
		if existing.FirstItemStarted != nil {
			return nil
		}
		waiting := timing.Seconds(existing.CreatedAt, now)
		existing.FirstItemStarted = &now
		existing.WaitingTime = &waiting

		if err := s.timingRepo.Update(ctx, *existing); err != nil {
			return fmt.Errorf("failed to start preparation of %s: %w", orderID, err)
		}

		return nil
	case !errors.Is(err, timing.ErrNotFound):
		return fmt.Errorf("failed to get timing of %s: %w", orderID, err)
	}

	o, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		slog.Warn("Skipping timing for unknown order", "order_id", orderID)

		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	totalItems := 0
	if s.items != nil {
		if totalItems, err = s.items.CountByOrder(ctx, orderID); err != nil {
			return err
		}
	}

	waiting := timing.Seconds(o.Created, now)
	t := timing.OrderTiming{
		OrderID:          orderID,
		TableName:        o.TableName,
		DeliveryService:  o.DeliveryService.String(),
		CreatedAt:        o.Created,
		FirstItemStarted: &now,
		WaitingTime:      &waiting,
		TotalItems:       totalItems,
		Status:           timing.StatusActive,
	}

	if err := s.timingRepo.Insert(ctx, t); err != nil {
		return fmt.Errorf("failed to create timing of %s: %w", orderID, err)
	}

	slog.Info("Order preparation started", "order_id", orderID, "waiting_time", waiting)

	return nil
}

// CompleteOrder computes preparation and total time once. Without a started
// preparation it does nothing.
func (s *TimingService) CompleteOrder(ctx context.Context, orderID string) error {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.CompleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	t, err := s.timingRepo.Get(ctx, orderID)
	if errors.Is(err, timing.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get timing of %s: %w", orderID, err)
	}

	if t.FirstItemStarted == nil || t.AllItemsCompleted != nil {
		return nil
	}

	now := s.now()
	preparation := timing.Seconds(*t.FirstItemStarted, now)
	total := timing.Seconds(t.CreatedAt, now)
	t.AllItemsCompleted = &now
	t.PreparationTime = &preparation
	t.TotalTime = &total

	if err := s.timingRepo.Update(ctx, *t); err != nil {
		return fmt.Errorf("failed to complete timing of %s: %w", orderID, err)
	}

	slog.Info("Order preparation completed",
		"order_id", orderID,
		"preparation_time", preparation,
		"total_time", total,
	)

	return nil
}

// MarkPassed stamps passed_at once and closes an active timing.
func (s *TimingService) MarkPassed(ctx context.Context, orderID string) error {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.MarkPassed")
	defer span.End()

	t, err := s.timingRepo.Get(ctx, orderID)
	if errors.Is(err, timing.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get timing of %s: %w", orderID, err)
	}

	if t.PassedAt != nil && t.Status != timing.StatusActive {
		return nil
	}

	if t.PassedAt == nil {
		now := s.now()
		t.PassedAt = &now
	}
	if t.Status == timing.StatusActive {
		t.Status = timing.StatusCompleted
	}

	if err := s.timingRepo.Update(ctx, *t); err != nil {
		return fmt.Errorf("failed to mark %s passed: %w", orderID, err)
	}

	return nil
}

// EscalateOverdue moves active, unfinished orders older than the warning threshold to warning.
func (s *TimingService) EscalateOverdue(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.EscalateOverdue")
	defer span.End()

	now := s.now()
	cutoff := now.Add(-s.warningAfter)
	reason := fmt.Sprintf("not completed within %d minutes", int(s.warningAfter/time.Minute))

	n, err := s.timingRepo.EscalateOverdue(ctx, cutoff, now, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to escalate overdue orders: %w", err)
	}

	if n > 0 {
		slog.Warn("Orders escalated to warning", "count", n, "cutoff", cutoff)
	}

	return n, nil
}

// ListWarnings returns timings in warning, oldest order first.
func (s *TimingService) ListWarnings(ctx context.Context) ([]timing.OrderTiming, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.ListWarnings")
	defer span.End()

	warnings, err := s.timingRepo.ListByStatus(ctx, timing.StatusWarning)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}

	if warnings == nil {
		warnings = []timing.OrderTiming{}
	}

	return warnings, nil
}

// ResolveWarning archives a warning with the given reason.
func (s *TimingService) ResolveWarning(ctx context.Context, orderID, reason string) (*timing.OrderTiming, error) {
	if reason == "" {
		reason = resolvedReason
	}

	return s.moveWarning(ctx, orderID, timing.StatusArchived, reason)
}

// ReopenWarning returns a warning to active and clears its reason. The escalation
// stamp stays, so the overdue rule does not pick the order up again.
func (s *TimingService) ReopenWarning(ctx context.Context, orderID string) (*timing.OrderTiming, error) {
	return s.moveWarning(ctx, orderID, timing.StatusActive, "")
}

func (s *TimingService) moveWarning(
	ctx context.Context,
	orderID string,
	to timing.Status,
	reason string,
) (*timing.OrderTiming, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.moveWarning")
	defer span.End()

	t, err := s.timingRepo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get timing of %s: %w", orderID, err)
	}

	if t.Status != timing.StatusWarning {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, t.Status, timing.ErrNotInWarning)
	}

	t.Status = to
	t.WarningReason = reason

	if err := s.timingRepo.Update(ctx, *t); err != nil {
		return nil, fmt.Errorf("failed to update timing of %s: %w", orderID, err)
	}

	slog.Info("Warning handled", "order_id", orderID, "status", to)

	return t, nil
}

// TimingsFor returns the timing rows of the given orders keyed by order id.
func (s *TimingService) TimingsFor(ctx context.Context, orderIDs []string) (map[string]timing.OrderTiming, error) {
	rows, err := s.timingRepo.ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list timings: %w", err)
	}

	result := make(map[string]timing.OrderTiming, len(rows))
	for _, t := range rows {
		result[t.OrderID] = t
	}

	return result, nil
}

// DailyStats aggregates the orders created on the local calendar day containing day.
func (s *TimingService) DailyStats(ctx context.Context, day time.Time) (*timing.Stats, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "TimingService.DailyStats")
	defer span.End()

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	stats, err := s.timingRepo.Stats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}
	stats.Day = from.Format(time.DateOnly)

	return stats, nil
}

// Today returns DailyStats for the current day.
func (s *TimingService) Today(ctx context.Context) (*timing.Stats, error) {
	return s.DailyStats(ctx, s.now())
}
