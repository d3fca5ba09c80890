package processorclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/google/uuid"
)

func TestCreateIntent_SendsMetadataAndParsesResponse(t *testing.T) {
	var captured IntentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(IntentResponse{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	metadata := domain.SettlementMetadata{ApplicationID: uuid.New(), PropertyID: uuid.New(), OwnerID: uuid.New()}

	resp, err := client.CreateIntent(context.Background(), 150000, "usd", metadata)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.ID != "pi_1" || resp.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if captured.Amount != 150000 || captured.Currency != "usd" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
	if captured.Metadata.ApplicationID != metadata.ApplicationID {
		t.Fatal("settlement metadata was not forwarded")
	}
}

func TestCreateTransfer_ErrorResponseIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"balance_insufficient","message":"Insufficient funds"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	_, err := client.CreateTransfer(context.Background(), 1000, "usd", "acct_1", "pi_1", domain.SettlementMetadata{})
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *ErrorResponse, got %T", err)
	}
	if apiErr.ErrorDetail.Code != "balance_insufficient" {
		t.Fatalf("unexpected error code %q", apiErr.ErrorDetail.Code)
	}
}

func TestRetrieveConnectedAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts/acct_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ConnectedAccount{ID: "acct_1", ChargesEnabled: true, PayoutsEnabled: false})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	account, err := client.RetrieveConnectedAccount(context.Background(), "acct_1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if account.PayoutsEnabled {
		t.Fatal("expected payouts_enabled=false to survive decoding")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":150000,"currency":"usd"}}}`)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	event, err := VerifyWebhookSignature(body, signature, secret)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if event.ID != "evt_1" || event.Data.Object.ID != "pi_1" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := VerifyWebhookSignature(body, "deadbeef", secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	if _, err := VerifyWebhookSignature(body, signature, ""); err == nil {
		t.Fatal("expected an error for a missing secret")
	}
}
