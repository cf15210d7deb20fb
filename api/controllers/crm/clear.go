package crm

import (
	"net/http"

	"github.com/angelmondragon/rentalcrm-backend/api/middleware"
	"github.com/angelmondragon/rentalcrm-backend/api/responses"
	"github.com/angelmondragon/rentalcrm-backend/internal/crmadmin"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

// ClearData wipes every CRM key. allowed is evaluated once at wiring time
// from the environment and the explicit opt-in flag.
func ClearData(svc crmadmin.Service, allowed bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "clearing crm data is disabled in this environment"))
			return
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}

		result, err := svc.ClearAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"requested_by": middleware.UserIDFromContext(r.Context()),
				"contacts":     result.Contacts,
				"activities":   result.Activities,
				"tasks":        result.Tasks,
				"keys":         result.Keys,
			})
			logg.Warn(ctx, "crm.data.cleared")
		}
		responses.WriteSuccess(w, result)
	}
}
