package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guesthouse/internal/config"
	"guesthouse/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrGateway       = errors.New("payment gateway error")
	ErrNotConfigured = errors.New("payment gateway is not configured")
)

// Gateway is the subset of the Paystack API the services depend on.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}

// Client talks to the Paystack REST API with bearer authentication.
type Client struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(cfg config.PaystackConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		currency:   currency,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	return c.secretKey != "" && c.baseURL != ""
}

func (c *Client) Currency() string {
	return c.currency
}

type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      float64 // major units
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is a verified gateway transaction with amounts in major units.
type Transaction struct {
	ID                int64
	Reference         string
	Status            string
	GatewayResponse   string
	Amount            float64
	AmountMinor       int64
	Currency          string
	Channel           string
	PaidAt            string
	CustomerEmail     string
	AuthorizationCode string
	Metadata          map[string]any
}

// MetadataString reads a string metadata field.
func (t *Transaction) MetadataString(key string) string {
	if t.Metadata == nil {
		return ""
	}
	switch v := t.Metadata[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

type apiResponse[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeBody struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	Currency    string         `json:"currency,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type transactionData struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	PaidAt          string          `json:"paid_at"`
	GatewayResponse string          `json:"gateway_response"`
	Channel         string          `json:"channel"`
	Metadata        json.RawMessage `json:"metadata"`
	Customer        struct {
		Email string `json:"email"`
	} `json:"customer"`
	Authorization struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
}

func (d transactionData) toTransaction() *Transaction {
	tx := &Transaction{
		ID:                d.ID,
		Reference:         d.Reference,
		Status:            d.Status,
		GatewayResponse:   d.GatewayResponse,
		Amount:            ToMajor(d.Amount),
		AmountMinor:       d.Amount,
		Currency:          d.Currency,
		Channel:           d.Channel,
		PaidAt:            d.PaidAt,
		CustomerEmail:     d.Customer.Email,
		AuthorizationCode: d.Authorization.AuthorizationCode,
	}
	// metadata arrives as an object, a JSON-encoded string or an empty string
	if len(d.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(d.Metadata, &meta); err == nil {
			tx.Metadata = meta
		} else {
			var encoded string
			if err := json.Unmarshal(d.Metadata, &encoded); err == nil && encoded != "" {
				_ = json.Unmarshal([]byte(encoded), &meta)
				tx.Metadata = meta
			}
		}
	}
	return tx
}

// Initialize creates a hosted-checkout transaction and returns its redirect URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Email == "" || req.Reference == "" {
		return nil, errors.New("email and reference are required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	body := initializeBody{
		Email:       req.Email,
		Amount:      ToMinor(req.Amount),
		Reference:   req.Reference,
		Currency:    currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var resp apiResponse[InitializeResult]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization url", ErrGateway)
	}
	if resp.Data.Reference == "" {
		resp.Data.Reference = req.Reference
	}

	c.logger.Info().Str("reference", req.Reference).Int64("amount_minor", body.Amount).Msg("paystack transaction initialized")
	return &resp.Data, nil
}

// Verify fetches the current state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(reference) == "" {
		return nil, errors.New("reference is required")
	}

	var resp apiResponse[transactionData]
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.toTransaction(), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}

	var envelope apiResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: status %d: invalid response body", ErrGateway, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		return fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, envelope.Message)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	return nil
}

// ToMinor converts major units to the gateway's minor unit (x100, rounded).
func ToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToMajor converts minor units back to major units.
func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}
