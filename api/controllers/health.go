package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/api/responses"
	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

const (
	envHeader    = "X-RentalCRM-Env"
	readyTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every remote dependency. A nil pinger is skipped, which
// is the case for the in-memory store.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]kv.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]any{"dependency": name}))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
