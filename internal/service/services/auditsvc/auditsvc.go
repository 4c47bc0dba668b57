package auditsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/istatuslogrepo"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// AuditService persists item status change events into the audit trail.
type AuditService struct {
	logRepo istatuslogrepo.IStatusLogRepository
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.logRepo == nil {
		panic("auditsvc: status log repository is required")
	}

	return s
}

// WithStatusLogRepository sets the status log repository for the AuditService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStatusLogRepository(repo istatuslogrepo.IStatusLogRepository) option {
	return func(s *AuditService) {
		s.logRepo = repo
	}
}

// ProcessEvent stores every entry of a status change event. Redelivered events are
// absorbed by the repository.
func (s *AuditService) ProcessEvent(ctx context.Context, event statuslog.Event) error {
	ctx, span := otel.Tracer("service").Start(ctx, "AuditService.ProcessEvent")
	defer span.End()
	span.SetAttributes(attribute.Int("entries", len(event.Entries)))

	if len(event.Entries) == 0 {
		return nil
	}

	if err := s.logRepo.SaveEntries(ctx, event.Entries); err != nil {
		slog.Error("Failed to save status log", "error", err)

		return err
	}

	slog.Info("Status changes recorded",
		"entries", len(event.Entries),
		"order_ids", statuslog.EntryOrderIDs(event.Entries),
	)

	return nil
}

// ProcessMessage decodes a raw message body and processes it.
func (s *AuditService) ProcessMessage(ctx context.Context, body []byte) error {
	var event statuslog.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	return s.ProcessEvent(ctx, event)
}
