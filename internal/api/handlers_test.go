package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gdc-properties/payments-service/internal/app"
	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/google/uuid"
)

type distributionsRepoStub struct {
	store.Repository

	rows []domain.DistributionRecord
}

func (s *distributionsRepoStub) FindDistributionsByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]domain.DistributionRecord, error) {
	return s.rows, nil
}

func TestListDistributionsHandler_ReturnsLedger(t *testing.T) {
	repo := &distributionsRepoStub{
		rows: []domain.DistributionRecord{
			{ID: uuid.New(), RecipientType: domain.RecipientPlatform, Amount: 5000, Status: domain.DistributionStatusTransferred},
			{ID: uuid.New(), RecipientType: domain.RecipientOwner, Amount: 95000, Status: domain.DistributionStatusTransferred},
		},
	}
	service := app.NewService(repo, nil, nil, nil, nil, app.Settings{})
	handlers := NewPaymentHandlers(service, "whsec_test")
	router := PaymentRoutes(handlers, "")

	req := httptest.NewRequest(http.MethodGet, "/payments/applications/"+uuid.NewString()+"/distributions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Distributions []domain.DistributionRecord `json:"distributions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Distributions) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(resp.Distributions))
	}
}

func TestListDistributionsHandler_InvalidID(t *testing.T) {
	service := app.NewService(&distributionsRepoStub{}, nil, nil, nil, nil, app.Settings{})
	handlers := NewPaymentHandlers(service, "whsec_test")
	router := PaymentRoutes(handlers, "")

	req := httptest.NewRequest(http.MethodGet, "/payments/applications/not-a-uuid/distributions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid id, got %d", rec.Code)
	}
}

func TestListDistributionsHandler_EmptyLedgerIsEmptyArray(t *testing.T) {
	service := app.NewService(&distributionsRepoStub{}, nil, nil, nil, nil, app.Settings{})
	handlers := NewPaymentHandlers(service, "whsec_test")
	router := PaymentRoutes(handlers, "")

	req := httptest.NewRequest(http.MethodGet, "/payments/applications/"+uuid.NewString()+"/distributions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(resp["distributions"]) != "[]" {
		t.Fatalf("expected empty array, got %s", resp["distributions"])
	}
}
