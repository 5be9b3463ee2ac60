package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"course-payments/internal/domain"
	"course-payments/internal/infra/logging"
	"course-payments/internal/infra/metrics"
)

const maxWebhookBody = 65536

// handleStripeWebhook is the provider-push entry point into reconciliation.
// Response codes steer Stripe's retry machinery: 2xx acknowledges (including
// replays and permanently unprocessable events), 5xx asks for a retry and is
// reserved for failures that can heal on their own.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// Redelivering an oversized payload can never succeed.
			writeError(w, http.StatusBadRequest, "PAYLOAD_TOO_LARGE", "request body exceeds limit")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "READ_FAILED", "error reading request body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("stripe webhook signature verification failed")
		metrics.IncWebhookEvent("unknown", "invalid")
		writeError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed")
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			metrics.IncWebhookEvent(string(event.Type), "invalid")
			writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "failed to parse session")
			return
		}
		s.reconcileFromWebhook(w, r, string(event.Type), session.ID)
	default:
		metrics.IncWebhookEvent(string(event.Type), "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (s *Server) reconcileFromWebhook(w http.ResponseWriter, r *http.Request, eventType, providerSessionID string) {
	ctx := logging.WithSessID(r.Context(), providerSessionID)
	log := logging.With(ctx, s.log)

	res, err := s.reconcileUC.HandleProviderEvent(ctx, providerSessionID)
	switch {
	case err == nil:
		outcome := "replayed"
		if res.PaymentCreated || res.EnrollmentCreated {
			outcome = "processed"
		}
		metrics.IncWebhookEvent(eventType, outcome)
		writeJSON(w, http.StatusOK, map[string]string{"status": outcome})
	case errors.Is(err, domain.ErrPaymentNotSettled):
		// completed event for an async payment method whose funds have not
		// cleared; the async_payment_succeeded event will follow.
		metrics.IncWebhookEvent(eventType, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_settled"})
	case errors.Is(err, domain.ErrSessionNotFound):
		// A session this service never issued (shared Stripe account).
		// Retrying will not make it ours.
		log.Warn().Msg("webhook for unknown checkout session")
		metrics.IncWebhookEvent(eventType, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "unknown_session"})
	case errors.Is(err, domain.ErrMetadataInvalid):
		log.Error().Err(err).Msg("webhook session has invalid metadata")
		metrics.IncWebhookEvent(eventType, "invalid")
		writeJSON(w, http.StatusOK, map[string]string{"status": "invalid_metadata"})
	default:
		// Infra failure: signal retry.
		log.Error().Err(err).Msg("webhook reconciliation failed")
		metrics.IncWebhookEvent(eventType, "error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "reconciliation failed")
	}
}
