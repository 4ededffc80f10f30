package paymentControllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Gateway creates payment intents with the payment provider. The orchestrator
// only depends on this contract, so tests inject a fake.
type Gateway interface {
	CreateOrder(amountPaise int64, currency, receipt string, notes map[string]string) (string, error)
}

// RazorpayClient talks to the Razorpay Orders API.
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

// NewRazorpayClientFromEnv reads RAZORPAY_KEY_ID / RAZORPAY_KEY_SECRET and the
// optional RAZORPAY_BASE_URL override.
func NewRazorpayClientFromEnv() (*RazorpayClient, error) {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay configuration missing")
	}

	baseURL := os.Getenv("RAZORPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}

	return &RazorpayClient{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   baseURL,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type razorpayOrderResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// CreateOrder creates a Razorpay order with immediate capture and returns the
// gateway's order reference id.
func (rc *RazorpayClient) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]string) (string, error) {
	payload := map[string]interface{}{
		"amount":          amountPaise, // integer paise
		"currency":        currency,
		"payment_capture": 1,
		"receipt":         receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", rc.BaseURL+"/v1/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(rc.KeyID, rc.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := rc.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach razorpay: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("razorpay API error (%d): %s", resp.StatusCode, string(body))
	}

	var rzpResp razorpayOrderResponse
	if err := json.Unmarshal(body, &rzpResp); err != nil {
		return "", fmt.Errorf("failed to parse razorpay response: %w", err)
	}
	if rzpResp.Error != nil {
		return "", fmt.Errorf("razorpay error: %s", rzpResp.Error.Description)
	}
	if rzpResp.ID == "" {
		return "", fmt.Errorf("razorpay returned empty order id")
	}

	return rzpResp.ID, nil
}

// SignPayload computes the hex HMAC-SHA256 over "orderRef|paymentID", the
// digest Razorpay sends back as the callback signature.
func SignPayload(orderRef, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
