package verificationclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckVerification_ForwardsAPIKeyAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Internal-API-Key"); got != "internal_key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		if r.URL.Path != "/internal/verifications/ref_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(VerificationStatus{Verified: true, ApplicationID: "app-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "internal_key")
	status, err := client.CheckVerification(context.Background(), "ref_1", "app-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !status.Verified || status.ApplicationID != "app-1" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCheckVerification_NotFoundMeansUnverified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	status, err := client.CheckVerification(context.Background(), "ref_missing", "app-1")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if status.Verified {
		t.Fatal("a missing reference must not verify")
	}
}

func TestCheckVerification_ServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.CheckVerification(context.Background(), "ref_1", "app-1"); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
