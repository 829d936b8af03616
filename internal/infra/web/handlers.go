package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/infra/logging"
	"github.com/itzhord/onecard-sub000/internal/infra/metrics"
	"github.com/itzhord/onecard-sub000/internal/usecase"
)

type verifyRequest struct {
	Reference string `json:"reference"`
}

type verifyResponse struct {
	Payment *usecase.PaymentView `json:"payment"`
	Message string               `json:"message,omitempty"`
	Warning string               `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleVerify is the POST /api/v1/payments/verify entry point.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, reason := "fail", "internal"
	defer func() {
		metrics.PaymentVerifyRequests.WithLabelValues(result, reason).Inc()
		metrics.PaymentVerifyDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reason = "bad_json"
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := logging.WithReference(r.Context(), req.Reference)
	caller := CallerID(ctx)
	outcome, err := s.verifyUC.Verify(ctx, req.Reference, caller)
	if err != nil {
		s.writeVerifyError(w, r, err, &reason)
		return
	}

	result = "ok"
	resp := verifyResponse{Payment: outcome.Payment}
	switch {
	case outcome.Warning != "":
		reason = "degraded"
		resp.Warning = outcome.Warning
	case outcome.AlreadyVerified:
		reason = "already_verified"
		resp.Message = "payment already verified"
	default:
		reason = "verified"
		resp.Message = "payment verified successfully"
	}
	if !outcome.AlreadyVerified {
		if outcome.Payment != nil && outcome.Payment.PaymentType == "card" {
			metrics.ProvisioningOutcomes.WithLabelValues("card", provisioningStatus(outcome.CardErr)).Inc()
		}
		metrics.ProvisioningOutcomes.WithLabelValues("subscription", provisioningStatus(outcome.SubscriptionErr)).Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func provisioningStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (s *Server) writeVerifyError(w http.ResponseWriter, r *http.Request, err error, reason *string) {
	switch {
	case errors.Is(err, domain.ErrInvalidReference):
		*reason = "invalid_reference"
		writeError(w, http.StatusBadRequest, "malformed or missing payment reference")
	case domain.IsGatewayRejected(err):
		*reason = "gateway_rejected"
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		*reason = "not_found"
		writeError(w, http.StatusNotFound, "no payment record for this reference")
	case errors.Is(err, domain.ErrForbidden):
		*reason = "forbidden"
		writeError(w, http.StatusForbidden, "payment belongs to a different user")
	case errors.Is(err, domain.ErrLockNotAcquired):
		*reason = "locked"
		writeError(w, http.StatusConflict, "verification already in progress for this reference")
	case errors.Is(err, domain.ErrGatewayCredentials):
		*reason = "internal"
		writeError(w, http.StatusInternalServerError, "payment gateway is not configured")
	default:
		*reason = "internal"
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("verification failed unexpectedly")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type initiateRequest struct {
	Email    string                 `json:"email"`
	Amount   int64                  `json:"amount"` // minor units
	Currency string                 `json:"currency"`
	Intent   string                 `json:"intent"`
	Metadata map[string]interface{} `json:"metadata"`
}

type initiateResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := CallerID(r.Context())
	p, authURL, err := s.initiateUC.Initiate(r.Context(), caller, req.Email, req.Amount, req.Currency, req.Intent, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidReference):
			writeError(w, http.StatusBadRequest, "invalid initiation request")
		case errors.Is(err, domain.ErrGatewayCredentials):
			writeError(w, http.StatusInternalServerError, "payment gateway is not configured")
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("payment initiation failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, initiateResponse{Reference: p.Reference, AuthorizationURL: authURL})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	caller := CallerID(r.Context())

	p, err := s.initiateUC.FindForUser(r.Context(), reference, caller)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidReference):
			writeError(w, http.StatusBadRequest, "malformed payment reference")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no payment record for this reference")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "payment belongs to a different user")
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("payment lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Payment *usecase.PaymentView `json:"payment"`
	}{Payment: usecase.ViewOf(p)})
}
