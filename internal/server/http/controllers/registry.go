package controllers

import (
	"net/http"

	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	checks  *ChecksController
	history *HistoryController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *checksvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, svc),
		checks:  NewChecksController(svc),
		history: NewHistoryController(svc),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.checks.RegisterRoutes(mux)
	r.history.RegisterRoutes(mux)
}

// SetDraining makes /v1/readyz report not ready.
func (r *ControllerRegistry) SetDraining() { r.general.draining.Store(true) }
