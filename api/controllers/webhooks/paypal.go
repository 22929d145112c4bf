package webhooks

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/catalyst/moodle-availability-paypal/internal/ipn"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
)

type PayPalIPNService interface {
	Process(ctx context.Context, notif *ipn.Notification) ipn.Outcome
}

const maxNotificationBytes = 1 << 20

// PayPalIPN receives instant payment notifications from the PayPal gateway.
// The gateway only looks at the status code and retries anything except 200,
// so every path answers 200 with an empty body. Requests that carry a query
// string, a non-form payload, or no fields at all get the same blank answer
// and are dropped without processing.
func PayPalIPN(svc PayPalIPNService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.URL.RawQuery != "" {
			if logg != nil {
				logg.Warn(ctx, "ipn.rejected.query_string")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		if !isFormEncoded(r.Header.Get("Content-Type")) {
			if logg != nil {
				logg.Warn(ctx, "ipn.rejected.content_type")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "ipn.read_body", err)
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		notif := ipn.ParseForm(string(payload))
		if len(notif.Fields()) == 0 {
			if logg != nil {
				logg.Warn(ctx, "ipn.rejected.empty_body")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		outcome := svc.Process(ctx, notif)

		if logg != nil {
			ctx = logg.WithField(ctx, "outcome", string(outcome))
			logg.Info(ctx, "ipn.handled")
		}

		w.WriteHeader(http.StatusOK)
	}
}

func isFormEncoded(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}
