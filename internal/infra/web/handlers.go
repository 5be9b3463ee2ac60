package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/infra/i18n"
	"course-payments/internal/infra/logging"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error errorBody `json:"error"`
	}{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain sentinel errors onto stable API error codes.
// Anything unmapped is an internal error; the detail stays in the log.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var notEligible *domain.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		writeError(w, http.StatusForbidden, "NOT_ELIGIBLE", s.translator(r).T(notEligible.Reason))
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "checkout session not found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "PURCHASABLE_NOT_FOUND", "purchasable not found")
	case errors.Is(err, domain.ErrPaymentNotSettled):
		writeError(w, http.StatusBadRequest, "PAYMENT_NOT_YET_CONFIRMED", "the provider has not confirmed this payment yet")
	case errors.Is(err, domain.ErrBuyerMismatch):
		writeError(w, http.StatusForbidden, "BUYER_MISMATCH", "this checkout session belongs to a different account")
	case errors.Is(err, domain.ErrMetadataInvalid):
		writeError(w, http.StatusBadRequest, "METADATA_INVALID", "checkout session metadata failed validation")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "GATEWAY_ERROR", "payment provider unavailable")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "administrator role required")
	case errors.Is(err, domain.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "NOT_ENROLLED", "no enrollment for this course")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	purchasableID := r.URL.Query().Get("purchasable_id")
	if purchasableID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "purchasable_id is required")
		return
	}
	d, err := s.eligibilityUC.Evaluate(r.Context(), BuyerID(r.Context()), purchasableID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason,omitempty"`
		Message string `json:"message,omitempty"`
	}{Allowed: d.Allowed, Reason: d.Reason}
	if !d.Allowed {
		resp.Message = s.translator(r).T(d.Reason)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PurchasableID string `json:"purchasable_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PurchasableID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "purchasable_id is required")
		return
	}

	session, redirectURL, err := s.checkoutUC.Initiate(r.Context(), BuyerID(r.Context()), req.PurchasableID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ProviderSessionID string `json:"provider_session_id"`
		RedirectURL       string `json:"redirect_url"`
		AmountMinor       int64  `json:"amount_minor"`
		Currency          string `json:"currency"`
	}{
		ProviderSessionID: session.ProviderSessionID,
		RedirectURL:       redirectURL,
		AmountMinor:       session.AmountMinor,
		Currency:          session.Currency,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProviderSessionID string `json:"provider_session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderSessionID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "provider_session_id is required")
		return
	}

	res, err := s.reconcileUC.Confirm(r.Context(), req.ProviderSessionID, BuyerID(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status            string `json:"status"`
		EnrollmentCreated bool   `json:"enrollment_created"`
		PaymentCreated    bool   `json:"payment_created"`
		TestMode          bool   `json:"test_mode"`
	}{
		Status:            "ok",
		EnrollmentCreated: res.EnrollmentCreated,
		PaymentCreated:    res.PaymentCreated,
		TestMode:          res.TestMode,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var req struct {
		Percent int `json:"percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "percent is required")
		return
	}

	cert, err := s.certificateUC.OnProgressUpdated(r.Context(), BuyerID(r.Context()), courseID, req.Percent)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := struct {
		CertificateID string `json:"certificate_id,omitempty"`
	}{}
	if cert != nil {
		resp.CertificateID = cert.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProviderPaymentRef string `json:"provider_payment_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderPaymentRef == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "provider_payment_ref is required")
		return
	}
	if err := s.adminUC.RecordRefund(r.Context(), BuyerID(r.Context()), req.ProviderPaymentRef); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

func (s *Server) handleRoleChange(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "role is required")
		return
	}
	if err := s.adminUC.ChangeUserRole(r.Context(), BuyerID(r.Context()), userID, model.UserRole(req.Role)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// NewTranslators loads the embedded locales the server localizes denial
// reasons with.
func NewTranslators(locales ...string) (map[string]*i18n.Translator, error) {
	out := make(map[string]*i18n.Translator, len(locales))
	for _, code := range locales {
		tr, err := i18n.NewTranslator(i18n.LocalesFS, code)
		if err != nil {
			return nil, err
		}
		out[code] = tr
	}
	return out, nil
}
