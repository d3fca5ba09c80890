/**
 * @description
 * Handlers for owner onboarding events delivered over RabbitMQ. The
 * onboarding collaborator publishes eligibility changes on the topic exchange
 * and this service mirrors them into owner_profiles so the reconciler can
 * gate automated payouts.
 *
 * Handlers return true to ack the message and false to nack it with requeue,
 * matching the consumer's delivery contract.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/google/uuid"
)

// Routing keys this service binds its onboarding queue to.
const (
	RoutingKeyOnboardingCompleted = "owner.onboarding.completed"
	RoutingKeyPayoutsEnabled      = "owner.payouts.enabled"
	RoutingKeyPayoutsDisabled     = "owner.payouts.disabled"
)

// OnboardingBindings returns the routing-key to handler map for the
// onboarding consumer queue.
func (s *Service) OnboardingBindings() map[string]func([]byte) bool {
	return map[string]func([]byte) bool{
		RoutingKeyOnboardingCompleted: s.handleOnboardingMessage,
		RoutingKeyPayoutsEnabled:      s.handleOnboardingMessage,
		RoutingKeyPayoutsDisabled:     s.handleOnboardingMessage,
	}
}

// handleOnboardingMessage applies one onboarding event to the owner profile.
// Malformed payloads are acked and dropped; a requeue would just loop them.
func (s *Service) handleOnboardingMessage(body []byte) bool {
	var event domain.OwnerOnboardingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=error component=onboarding_consumer msg=\"malformed onboarding event; dropping\" err=%v", err)
		return true
	}
	if event.OwnerID == uuid.Nil {
		log.Printf("level=error component=onboarding_consumer msg=\"onboarding event without owner_id; dropping\"")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.repo.ApplyOwnerOnboarding(ctx, event); err != nil {
		log.Printf("level=error component=onboarding_consumer owner_id=%s msg=\"failed to apply onboarding event; requeueing\" err=%v", event.OwnerID, err)
		return false
	}

	log.Printf("level=info component=onboarding_consumer owner_id=%s onboarding_complete=%t payouts_enabled=%t msg=\"owner payout profile updated\"",
		event.OwnerID, event.OnboardingComplete, event.PayoutsEnabled)
	return true
}
