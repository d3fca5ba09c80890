/**
 * @description
 * This package provides a client for the hosted payment processor. It
 * encapsulates the logic for making authenticated HTTP requests to the
 * processor's endpoints (payment intents, connected accounts, transfers),
 * handling request body construction, parsing responses, and verifying
 * webhook signatures.
 *
 * @dependencies
 * - bytes, context, crypto/hmac, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package processorclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
)

// Webhook event types the payments-service reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned when a webhook payload fails HMAC verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Client is a client for the payment processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment processor client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IntentRequest is the payload for creating a payment intent.
type IntentRequest struct {
	Amount   int64                     `json:"amount"` // minor units
	Currency string                    `json:"currency"`
	Metadata domain.SettlementMetadata `json:"metadata"`
}

// IntentResponse is the processor's view of a created payment intent.
type IntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// TransferRequest is the payload for moving funds to a connected account.
type TransferRequest struct {
	Amount        int64                     `json:"amount"` // minor units
	Currency      string                    `json:"currency"`
	Destination   string                    `json:"destination"`
	TransferGroup string                    `json:"transfer_group"`
	Metadata      domain.SettlementMetadata `json:"metadata"`
}

// TransferResponse is the processor's confirmation of a transfer.
type TransferResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ConnectedAccount is the live capability state of a recipient account.
type ConnectedAccount struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// WebhookEvent is a signature-verified processor notification.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string                    `json:"id"`
			Amount   int64                     `json:"amount"`
			Currency string                    `json:"currency"`
			Metadata domain.SettlementMetadata `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ErrorResponse represents an error returned by the processor API.
type ErrorResponse struct {
	ErrorDetail struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorDetail.Message != "" {
		return fmt.Sprintf("processor api error: %s - %s", e.ErrorDetail.Code, e.ErrorDetail.Message)
	}
	return "unknown processor api error"
}

// CreateIntent asks the processor for a new payment intent carrying our
// settlement metadata so webhooks can be correlated back.
func (c *Client) CreateIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata domain.SettlementMetadata) (*IntentResponse, error) {
	payload := IntentRequest{Amount: amountMinorUnits, Currency: currency, Metadata: metadata}
	var resp IntentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelIntent cancels a previously created payment intent. Used as the
// compensating action when local persistence fails after intent creation.
func (c *Client) CancelIntent(ctx context.Context, intentID string) error {
	return c.do(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/cancel", nil, nil)
}

// RetrieveConnectedAccount fetches the live capability flags for a recipient
// account. Callers must not rely on cached eligibility before a transfer.
func (c *Client) RetrieveConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error) {
	var resp ConnectedAccount
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+accountID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateTransfer moves funds to a connected account.
func (c *Client) CreateTransfer(ctx context.Context, amountMinorUnits int64, currency, destinationAccountID, transferGroup string, metadata domain.SettlementMetadata) (*TransferResponse, error) {
	payload := TransferRequest{
		Amount:        amountMinorUnits,
		Currency:      currency,
		Destination:   destinationAccountID,
		TransferGroup: transferGroup,
		Metadata:      metadata,
	}
	var resp TransferResponse
	if err := c.do(ctx, http.MethodPost, "/v1/transfers", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature over the raw body
// and, only if it matches, parses the event. Verification happens before any
// JSON decoding so unauthenticated payloads never reach business logic.
func VerifyWebhookSignature(rawBody []byte, signatureHeader, secret string) (*WebhookEvent, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is not configured")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return nil, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return &event, nil
}

// do executes a request against the processor API and decodes the response.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute processor request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read processor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=processor_client op=%s path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", method, path, resp.StatusCode)
			return fmt.Errorf("processor returned status %d", resp.StatusCode)
		}
		log.Printf("level=warn component=processor_client op=%s path=%s status=%d code=%q detail=%q", method, path, resp.StatusCode, errResp.ErrorDetail.Code, errResp.ErrorDetail.Message)
		return &errResp
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode processor response: %w", err)
	}
	return nil
}
