package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/google/uuid"
)

type onboardingRepoStub struct {
	store.Repository

	applied    *domain.OwnerOnboardingEvent
	applyError error
}

func (s *onboardingRepoStub) ApplyOwnerOnboarding(ctx context.Context, event domain.OwnerOnboardingEvent) error {
	if s.applyError != nil {
		return s.applyError
	}
	s.applied = &event
	return nil
}

func TestHandleOnboardingMessage_AppliesEvent(t *testing.T) {
	repo := &onboardingRepoStub{}
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	ownerID := uuid.New()
	body, _ := json.Marshal(domain.OwnerOnboardingEvent{
		OwnerID:            ownerID,
		ProcessorAccountID: "acct_new",
		OnboardingComplete: true,
		PayoutsEnabled:     true,
	})

	if ack := svc.handleOnboardingMessage(body); !ack {
		t.Fatal("expected ack for an applied event")
	}
	if repo.applied == nil {
		t.Fatal("expected the event to reach the repository")
	}
	if repo.applied.OwnerID != ownerID || !repo.applied.PayoutsEnabled {
		t.Fatalf("unexpected applied event: %+v", repo.applied)
	}
}

func TestHandleOnboardingMessage_MalformedPayloadIsDropped(t *testing.T) {
	repo := &onboardingRepoStub{}
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	if ack := svc.handleOnboardingMessage([]byte("not-json")); !ack {
		t.Fatal("malformed payloads must be acked, not requeued")
	}
	if repo.applied != nil {
		t.Fatal("malformed payloads must not reach the repository")
	}
}

func TestHandleOnboardingMessage_MissingOwnerIsDropped(t *testing.T) {
	repo := &onboardingRepoStub{}
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	body, _ := json.Marshal(domain.OwnerOnboardingEvent{PayoutsEnabled: true})
	if ack := svc.handleOnboardingMessage(body); !ack {
		t.Fatal("events without an owner id must be acked, not requeued")
	}
	if repo.applied != nil {
		t.Fatal("events without an owner id must not reach the repository")
	}
}

func TestHandleOnboardingMessage_RepositoryFailureRequeues(t *testing.T) {
	repo := &onboardingRepoStub{applyError: errors.New("db down")}
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	body, _ := json.Marshal(domain.OwnerOnboardingEvent{OwnerID: uuid.New()})
	if ack := svc.handleOnboardingMessage(body); ack {
		t.Fatal("repository failures must nack for redelivery")
	}
}

func TestOnboardingBindings_CoverAllRoutingKeys(t *testing.T) {
	svc := NewService(&onboardingRepoStub{}, &processorStub{}, nil, &producerStub{}, nil, testSettings())
	bindings := svc.OnboardingBindings()

	for _, key := range []string{RoutingKeyOnboardingCompleted, RoutingKeyPayoutsEnabled, RoutingKeyPayoutsDisabled} {
		if _, ok := bindings[key]; !ok {
			t.Fatalf("missing binding for %s", key)
		}
	}
}
