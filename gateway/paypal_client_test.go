package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/gateway"
)

func newPayPalServer(t *testing.T, captureStatus int, captureBody string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"token-1","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body["intent"])

		units := body["purchase_units"].([]any)
		unit := units[0].(map[string]any)
		assert.Equal(t, "order-1", unit["reference_id"])
		assert.Equal(t, map[string]any{"currency_code": "USD", "value": "50.00"}, unit["amount"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "5O190127TN364715T",
			"status": "CREATED",
			"links": [
				{"rel": "self", "href": "https://api.paypal.example/v2/checkout/orders/5O190127TN364715T"},
				{"rel": "approve", "href": "https://paypal.example/checkoutnow?token=5O190127TN364715T"}
			]
		}`))
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(captureStatus)
		_, _ = w.Write([]byte(captureBody))
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{
			"id": "5O190127TN364715T",
			"status": "COMPLETED",
			"purchase_units": [{
				"payments": {"captures": [{"id": "3C679366HH908993F", "status": "COMPLETED", "amount": {"currency_code": "USD", "value": "50.00"}}]}
			}]
		}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestPayPalClient_authorize_and_capture(t *testing.T) {
	srv := newPayPalServer(t, http.StatusCreated, `{
		"id": "5O190127TN364715T",
		"status": "COMPLETED",
		"purchase_units": [{
			"payments": {"captures": [{"id": "3C679366HH908993F", "status": "COMPLETED", "amount": {"currency_code": "USD", "value": "50.00"}}]}
		}]
	}`)

	client := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseAPIURL:   srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		ReturnURL:    "https://restaurant.example/payments/return",
	})
	ctx := context.Background()

	authorization, err := client.CreateAuthorization(ctx, entity.AuthorizationRequest{
		OrderID:     "order-1",
		Description: "Jazz Night",
		Amount:      entity.Money{Amount: "50.00", Currency: "USD"},
	})
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", authorization.AuthorizationID)
	assert.Equal(t, "https://paypal.example/checkoutnow?token=5O190127TN364715T", authorization.ApprovalURL)

	capture, err := client.Capture(ctx, authorization.AuthorizationID)
	require.NoError(t, err)
	assert.True(t, capture.Completed())
	assert.Equal(t, "3C679366HH908993F", capture.TransactionID)
	assert.Equal(t, entity.Money{Amount: "50.00", Currency: "USD"}, capture.Amount)
}

func TestPayPalClient_capture_not_approved(t *testing.T) {
	srv := newPayPalServer(t, http.StatusUnprocessableEntity, `{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_NOT_APPROVED"}]}`)

	client := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseAPIURL:   srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	})

	_, err := client.Capture(context.Background(), "5O190127TN364715T")
	assert.ErrorIs(t, err, entity.ErrPaymentNotCompleted)
}

func TestPayPalClient_find_capture_after_rejected_capture(t *testing.T) {
	srv := newPayPalServer(t, http.StatusUnprocessableEntity, `{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`)

	client := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseAPIURL:   srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	})
	ctx := context.Background()

	_, err := client.Capture(ctx, "5O190127TN364715T")
	require.ErrorIs(t, err, entity.ErrPaymentNotCompleted)

	capture, err := client.FindCapture(ctx, "5O190127TN364715T")
	require.NoError(t, err)
	assert.True(t, capture.Completed())
	assert.Equal(t, "3C679366HH908993F", capture.TransactionID)
	assert.Equal(t, entity.Money{Amount: "50.00", Currency: "USD"}, capture.Amount)
}

func TestPayPalClient_provider_failure(t *testing.T) {
	srv := newPayPalServer(t, http.StatusInternalServerError, `{"name":"INTERNAL_SERVER_ERROR"}`)

	client := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseAPIURL:   srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	})

	_, err := client.Capture(context.Background(), "5O190127TN364715T")
	assert.ErrorIs(t, err, entity.ErrProviderUnavailable)

	srv.Close()
	_, err = client.CreateAuthorization(context.Background(), entity.AuthorizationRequest{OrderID: "order-1"})
	assert.ErrorIs(t, err, entity.ErrProviderUnavailable)
}

func TestPayPalClient_missing_credentials(t *testing.T) {
	client := gateway.NewPayPalClient(gateway.PayPalConfig{BaseAPIURL: "http://127.0.0.1:0"})

	_, err := client.CreateAuthorization(context.Background(), entity.AuthorizationRequest{OrderID: "order-1"})
	assert.ErrorIs(t, err, entity.ErrProviderCredentialsMissing)
}
