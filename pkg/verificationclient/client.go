/**
 * @description
 * This package provides a client for the email-verification collaborator.
 * The orchestrator uses it to confirm that a verification reference supplied
 * with a create-intent request actually belongs to the application and has
 * not expired.
 */
package verificationclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the verification service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new verification service client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// VerificationStatus is the verification service's answer for a reference.
type VerificationStatus struct {
	Verified      bool   `json:"verified"`
	ApplicationID string `json:"application_id"`
	Expired       bool   `json:"expired"`
}

// CheckVerification resolves a verification reference scoped to an application.
func (c *Client) CheckVerification(ctx context.Context, reference, applicationID string) (*VerificationStatus, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("verification service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/verifications/%s?application_id=%s", c.baseURL, reference, applicationID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to verification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &VerificationStatus{Verified: false}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("verification service returned error status %d", resp.StatusCode)
	}

	var status VerificationStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &status, nil
}
