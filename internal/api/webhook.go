/**
 * @description
 * HTTP endpoint for processor webhook deliveries. The raw body is read once
 * and HMAC-verified before any decoding; unauthenticated payloads are
 * rejected with 400. Verified events are acknowledged with 200 even when
 * internal processing fails, because the conditional updates make redelivery
 * safe and the processor's retry policy is not a work queue we control.
 */

package api

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gdc-properties/payments-service/internal/metrics"
	"github.com/gdc-properties/payments-service/pkg/processorclient"
)

// webhookMaxBodyBytes caps the webhook payload size.
const webhookMaxBodyBytes = 64 * 1024

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Processor-Signature"

var nowFunc = time.Now

// WebhookHandler handles processor webhook deliveries.
func (h *PaymentHandlers) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	event, err := processorclient.VerifyWebhookSignature(body, r.Header.Get(SignatureHeader), h.webhookSecret)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		log.Printf("level=warn component=webhook_api msg=\"webhook signature verification failed\" err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	result, err := h.service.ProcessWebhookEvent(r.Context(), event)
	if err != nil {
		// The delivery is acknowledged regardless; redelivery is a no-op.
		log.Printf("level=error component=webhook_api event_id=%s msg=\"webhook processing failed\" err=%v", event.ID, err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(result).Inc()

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
