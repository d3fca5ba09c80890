/**
 * @description
 * This file contains the HTTP handlers for the payments-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gdc-properties/payments-service/internal/app"
	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentHandlers holds the application service that handlers will use.
type PaymentHandlers struct {
	service       *app.Service
	webhookSecret string
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(service *app.Service, webhookSecret string) *PaymentHandlers {
	return &PaymentHandlers{service: service, webhookSecret: webhookSecret}
}

// CreateIntentHandler handles requests to create a payment intent for an
// approved rental application.
func (h *PaymentHandlers) CreateIntentHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateIntentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.CreatePaymentIntent(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// confirmPaymentRequest is the payload for the synchronous confirmation path.
// The client calls this after the processor reports the intent succeeded on
// its side; the webhook remains the source of truth for missed confirmations.
type confirmPaymentRequest struct {
	IntentID      string `json:"intent_id"`
	TransactionID string `json:"transaction_id"`
}

// ConfirmPaymentHandler settles a payment intent reported as succeeded by the
// client.
func (h *PaymentHandlers) ConfirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.IntentID == "" {
		h.writeError(w, http.StatusBadRequest, "intent_id is required")
		return
	}

	outcome, err := h.service.HandlePaymentSucceeded(r.Context(), req.IntentID, req.TransactionID, nowFunc())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// ListDistributionsHandler returns the distribution ledger for an application.
func (h *PaymentHandlers) ListDistributionsHandler(w http.ResponseWriter, r *http.Request) {
	applicationID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application ID")
		return
	}

	records, err := h.service.GetDistributions(r.Context(), applicationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []domain.DistributionRecord{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"distributions": records})
}

// updatePropertyStatusRequest is the payload for the administrative property
// status endpoint.
type updatePropertyStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePropertyStatusHandler handles administrative property status changes,
// e.g. returning a property to available after a lease ends.
func (h *PaymentHandlers) UpdatePropertyStatusHandler(w http.ResponseWriter, r *http.Request) {
	propertyID, err := uuid.Parse(chi.URLParam(r, "propertyID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid property ID")
		return
	}

	var req updatePropertyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdatePropertyStatus(r.Context(), propertyID, req.Status); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// writeServiceError maps service and store errors to HTTP status codes.
func (h *PaymentHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrAmountMismatch):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrVerificationRequired):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrApplicationNotEligible), errors.Is(err, app.ErrPropertyUnavailable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrApplicationNotFound), errors.Is(err, store.ErrPropertyNotFound),
		errors.Is(err, store.ErrPaymentNotFound), errors.Is(err, store.ErrDistributionNotFound),
		errors.Is(err, store.ErrOwnerNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *PaymentHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *PaymentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
