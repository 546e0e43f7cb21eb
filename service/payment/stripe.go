package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StripeClient talks to the Stripe API directly over HTTP; the two calls
// this service needs do not justify an SDK.
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (c *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CreatePaymentIntent creates a payment intent for an amount already
// converted to the currency's minor unit.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, consultationID uint) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[consultation_id]", fmt.Sprint(consultationID))

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var stripeErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil && stripeErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe: %s", stripeErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	var intent PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}
	if intent.ClientSecret == "" {
		return nil, fmt.Errorf("stripe: response missing client secret")
	}
	return &intent, nil
}


const webhookTolerance = 5 * time.Minute

// VerifyWebhookSignature checks a Stripe-Signature header (t=...,v1=...)
// against the payload. The timestamp must be within tolerance to block
// replayed events.
func VerifyWebhookSignature(secret string, payload []byte, header string) bool {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if d := time.Since(time.Unix(ts, 0)); d > webhookTolerance || d < -webhookTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}
