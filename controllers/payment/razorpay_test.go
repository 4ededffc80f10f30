package paymentControllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignPayload(t *testing.T) {
	// echo -n 'order_1|pay_1' | openssl dgst -sha256 -hmac 's3cret'
	assert.Equal(t,
		"44422d618d76e6e81c5f002f4d5108385750b52eb8db4e9c7a4231ddfac02840",
		SignPayload("order_1", "pay_1", "s3cret"),
	)

	// Any input change yields a different digest.
	assert.NotEqual(t, SignPayload("order_1", "pay_1", "s3cret"), SignPayload("order_1", "pay_2", "s3cret"))
	assert.NotEqual(t, SignPayload("order_1", "pay_1", "s3cret"), SignPayload("order_1", "pay_1", "other"))
}

func TestRazorpayClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(72500), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, float64(1), body["payment_capture"])
		assert.Equal(t, "ord_abc123", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_NXhqe2eEio"}`))
	}))
	defer srv.Close()

	client := &RazorpayClient{
		KeyID:     "key_id",
		KeySecret: "key_secret",
		BaseURL:   srv.URL,
		HTTP:      srv.Client(),
	}

	ref, err := client.CreateOrder(72500, "INR", "ord_abc123", map[string]string{"db_order_id": "x"})
	require.NoError(t, err)
	assert.Equal(t, "order_NXhqe2eEio", ref)
}

func TestRazorpayClient_CreateOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	client := &RazorpayClient{
		KeyID:     "key_id",
		KeySecret: "key_secret",
		BaseURL:   srv.URL,
		HTTP:      srv.Client(),
	}

	_, err := client.CreateOrder(1, "INR", "ord_x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "razorpay API error (400)")
}
