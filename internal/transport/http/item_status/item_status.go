package itemstatus

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/auth"
	"github.com/go-playground/validator/v10"
)

const defaultActor = "kitchen"

type service interface {
	SetItemsStatus(
		ctx context.Context,
		itemIDs []string,
		status kitchenstatus.Status,
		actor string,
	) ([]statuslog.Change, error)
}

var validate = validator.New()

// setStatusRequest represents a status update of individual items.
type setStatusRequest struct {
	IDs    []string `json:"ids"    validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required"`
	Actor  string   `json:"actor"  validate:"omitempty,max=64"`
}

// Validate validates the status update request.
func (r *setStatusRequest) Validate() error {
	return validate.Struct(r)
}

type setStatusResponse struct {
	Updated int                `json:"updated"`
	Changes []statuslog.Change `json:"changes"`
}

// SetStatus handles POST /api/items/status.
func SetStatus(w http.ResponseWriter, r *http.Request, service service) {
	req := setStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err, "Error decoding request body for status update")

		return
	}

	if err := req.Validate(); err != nil {
		respond.BadRequest(w, r, err, "Error validating request body for status update")

		return
	}

	status, err := kitchenstatus.Parse(req.Status)
	if err != nil {
		respond.BadRequest(w, r, err, "Error parsing status")

		return
	}

	actor := req.Actor
	if actor == "" {
		actor = auth.Actor(r.Context(), defaultActor)
	}

	changes, err := service.SetItemsStatus(r.Context(), req.IDs, status, actor)
	if err != nil {
		respond.Error(w, r, err, "Error updating item status")

		return
	}

	if changes == nil {
		changes = []statuslog.Change{}
	}
	respond.JSON(w, r, http.StatusOK, setStatusResponse{Updated: len(changes), Changes: changes})
}
