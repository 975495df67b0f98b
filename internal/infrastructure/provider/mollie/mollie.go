package mollie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/ministore/internal/domain/payment"
)

const ProviderName = "mollie"

const defaultTimeout = 10 * time.Second

// Client talks to the Mollie v2 payments API. Only the two calls the core
// needs are implemented: create a hosted-checkout payment and fetch a
// payment's status.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.mollie.com"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

var _ payment.Provider = (*Client)(nil)

func (c *Client) Name() string { return ProviderName }

type amountBody struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type createPaymentBody struct {
	Amount      amountBody        `json:"amount"`
	Description string            `json:"description"`
	RedirectURL string            `json:"redirectUrl"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (c *Client) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.CreatePaymentResult, error) {
	body, err := json.Marshal(createPaymentBody{
		Amount: amountBody{
			Currency: req.Currency,
			Value:    formatMinorUnits(req.Amount),
		},
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		WebhookURL:  req.WebhookURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", payment.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: create payment: status %d", payment.ErrProvider, resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", payment.ErrProvider, err)
	}
	if pr.ID == "" || pr.Links.Checkout.Href == "" {
		return nil, fmt.Errorf("%w: create payment: incomplete response", payment.ErrProvider)
	}

	return &payment.CreatePaymentResult{
		ExternalID:  pr.ID,
		RedirectURL: pr.Links.Checkout.Href,
	}, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, externalID string) (payment.Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/payments/"+externalID, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", payment.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: get payment: status %d", payment.ErrProvider, resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", payment.ErrProvider, err)
	}
	return mapStatus(pr.Status), nil
}

func mapStatus(s string) payment.Status {
	switch s {
	case "paid":
		return payment.StatusPaid
	case "canceled":
		return payment.StatusCanceled
	case "expired":
		return payment.StatusExpired
	case "failed":
		return payment.StatusFailed
	case "pending", "authorized":
		return payment.StatusPending
	default:
		return payment.StatusOpen
	}
}

// formatMinorUnits renders minor units as the decimal string the API expects,
// e.g. 1998 -> "19.98".
func formatMinorUnits(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
