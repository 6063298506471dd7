package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sunny07-bar/website-sub000/entity"
)

type PayPalConfig struct {
	BaseAPIURL   string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
}

// PayPalClient drives the checkout orders API: an order created with
// intent CAPTURE is the authorization the buyer approves, capturing it
// moves the money.
type PayPalClient struct {
	httpClient *http.Client
	config     PayPalConfig
}

func NewPayPalClient(config PayPalConfig) *PayPalClient {
	return &PayPalClient{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
	}
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCreateOrderRequest struct {
	Intent        string `json:"intent"`
	PurchaseUnits []struct {
		ReferenceID string       `json:"reference_id"`
		Description string       `json:"description,omitempty"`
		Amount      paypalAmount `json:"amount"`
	} `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url,omitempty"`
		CancelURL string `json:"cancel_url,omitempty"`
	} `json:"application_context"`
}

type paypalOrderResponse struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *PayPalClient) CreateAuthorization(ctx context.Context, request entity.AuthorizationRequest) (entity.Authorization, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return entity.Authorization{}, err
	}

	var body paypalCreateOrderRequest
	body.Intent = "CAPTURE"
	body.PurchaseUnits = append(body.PurchaseUnits, struct {
		ReferenceID string       `json:"reference_id"`
		Description string       `json:"description,omitempty"`
		Amount      paypalAmount `json:"amount"`
	}{
		ReferenceID: request.OrderID,
		Description: request.Description,
		Amount: paypalAmount{
			CurrencyCode: request.Amount.Currency,
			Value:        request.Amount.Amount,
		},
	})
	body.ApplicationContext.ReturnURL = c.returnURL(request.OrderID)
	body.ApplicationContext.CancelURL = c.config.CancelURL

	payload, err := json.Marshal(body)
	if err != nil {
		return entity.Authorization{}, fmt.Errorf("could not marshal paypal order: %w", err)
	}

	var result paypalOrderResponse
	err = c.do(ctx, http.MethodPost, "/v2/checkout/orders", token, payload, &result)
	if err != nil {
		return entity.Authorization{}, err
	}

	authorization := entity.Authorization{AuthorizationID: result.ID}
	for _, link := range result.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			authorization.ApprovalURL = link.Href
		}
	}

	log.FromContext(ctx).WithField("authorization_id", result.ID).Info("PayPal order created")

	return authorization, nil
}

func (c *PayPalClient) Capture(ctx context.Context, authorizationID string) (entity.Capture, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return entity.Capture{}, err
	}

	var result paypalOrderResponse
	err = c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(authorizationID)+"/capture", token, nil, &result)
	if err != nil {
		return entity.Capture{}, err
	}

	return result.capture(), nil
}

// FindCapture reads the current state of an authorization without moving
// money. A COMPLETED status means an earlier capture went through.
func (c *PayPalClient) FindCapture(ctx context.Context, authorizationID string) (entity.Capture, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return entity.Capture{}, err
	}

	var result paypalOrderResponse
	err = c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(authorizationID), token, nil, &result)
	if err != nil {
		return entity.Capture{}, err
	}

	return result.capture(), nil
}

func (r paypalOrderResponse) capture() entity.Capture {
	capture := entity.Capture{
		TransactionID: r.ID,
		Status:        r.Status,
	}
	for _, unit := range r.PurchaseUnits {
		for _, c := range unit.Payments.Captures {
			capture.TransactionID = c.ID
			capture.Amount = entity.Money{Amount: c.Amount.Value, Currency: c.Amount.CurrencyCode}
		}
	}

	return capture
}

func (c *PayPalClient) returnURL(orderID string) string {
	if c.config.ReturnURL == "" {
		return ""
	}

	u, err := url.Parse(c.config.ReturnURL)
	if err != nil {
		return c.config.ReturnURL
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()

	return u.String()
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return "", entity.ErrProviderCredentialsMissing
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.BaseAPIURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"),
	)
	if err != nil {
		return "", fmt.Errorf("could not create paypal token request: %w", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token request failed: %s", entity.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: paypal token request returned %d: %s", entity.ErrProviderUnavailable, resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("%w: could not decode paypal token: %s", entity.ErrProviderUnavailable, err)
	}

	return res.AccessToken, nil
}

func (c *PayPalClient) do(ctx context.Context, method string, path string, token string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseAPIURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not create paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s failed: %s", entity.ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: could not read paypal response: %s", entity.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// e.g. the buyer has not approved the order
		return fmt.Errorf("%w: paypal returned %d: %s", entity.ErrPaymentNotCompleted, resp.StatusCode, string(respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: paypal returned %d: %s", entity.ErrProviderUnavailable, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: could not decode paypal response: %s", entity.ErrProviderUnavailable, err)
	}

	return nil
}
