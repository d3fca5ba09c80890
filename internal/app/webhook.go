/**
 * @description
 * Routing of verified processor webhook events into the reconciler. Signature
 * verification happens at the HTTP layer; by the time an event reaches
 * ProcessWebhookEvent it is authenticated.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/gdc-properties/payments-service/pkg/processorclient"
)

// Webhook processing results, used as metric labels by the HTTP layer.
const (
	WebhookResultAccepted  = "accepted"
	WebhookResultDuplicate = "duplicate"
	WebhookResultIgnored   = "ignored"
)

// ProcessWebhookEvent dispatches a verified webhook event. Unknown event
// types and events for intents this service never created are ignored, not
// errors: the processor account may carry traffic for other services.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event *processorclient.WebhookEvent) (string, error) {
	if !s.dedupe.FirstDelivery(ctx, event.ID) {
		log.Printf("level=info component=webhook event_id=%s msg=\"duplicate webhook delivery skipped\"", event.ID)
		return WebhookResultDuplicate, nil
	}

	switch event.Type {
	case processorclient.EventPaymentSucceeded:
		_, err := s.HandlePaymentSucceeded(ctx, event.Data.Object.ID, event.ID, now())
		if errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("level=warn component=webhook event_id=%s intent_id=%s msg=\"succeeded event for unknown intent; ignoring\"", event.ID, event.Data.Object.ID)
			return WebhookResultIgnored, nil
		}
		if err != nil {
			return WebhookResultAccepted, err
		}
		return WebhookResultAccepted, nil

	case processorclient.EventPaymentFailed:
		err := s.HandlePaymentFailed(ctx, event.Data.Object.ID, event.Type)
		if errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("level=warn component=webhook event_id=%s intent_id=%s msg=\"failure event for unknown intent; ignoring\"", event.ID, event.Data.Object.ID)
			return WebhookResultIgnored, nil
		}
		if err != nil {
			return WebhookResultAccepted, err
		}
		return WebhookResultAccepted, nil

	default:
		log.Printf("level=info component=webhook event_id=%s type=%s msg=\"unhandled webhook event type\"", event.ID, event.Type)
		return WebhookResultIgnored, nil
	}
}
