package controllers

import (
	"context"
	"net/http"

	"github.com/catalyst/moodle-availability-paypal/api/responses"
	"github.com/catalyst/moodle-availability-paypal/pkg/config"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
)

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AvailPayPal-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AvailPayPal-Env", cfg.App.Env)

		ctx := r.Context()
		status := map[string]string{"status": "ready"}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			status[name] = "up"
		}

		responses.WriteSuccess(w, status)
	}
}
