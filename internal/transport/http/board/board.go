package board

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/kitchensvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
)

type service interface {
	KitchenBoard(ctx context.Context) (*kitchensvc.KitchenBoard, error)
	BarBoard(ctx context.Context) (*kitchensvc.BarBoard, error)
}

// Kitchen handles GET /api/kitchen/board.
func Kitchen(w http.ResponseWriter, r *http.Request, service service) {
	b, err := service.KitchenBoard(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Error loading kitchen board")

		return
	}

	respond.JSON(w, r, http.StatusOK, b)
}

// Bar handles GET /api/bar/board.
func Bar(w http.ResponseWriter, r *http.Request, service service) {
	b, err := service.BarBoard(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Error loading bar board")

		return
	}

	respond.JSON(w, r, http.StatusOK, b)
}
