package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sunny07-bar/website-sub000/app"
	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/gateway"
)

const (
	httpAddr = ":8089"
	baseURL  = "http://localhost:8089"
)

type testEnv struct {
	gateway  *gateway.GatewayMock
	provider *gateway.PaymentProviderMock
}

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(
		t,
		goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	ctx, cancel := context.WithCancel(context.Background())

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	env := testEnv{
		gateway:  &gateway.GatewayMock{},
		provider: &gateway.PaymentProviderMock{},
	}

	a, err := app.New(
		app.Config{HTTPAddr: httpAddr},
		dbconn,
		redisClient,
		env.gateway,
		env.gateway,
		env.gateway,
		env.provider,
		nil,
	)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.NoError(t, a.Run(ctx))
	}()
	defer func() {
		cancel()
		<-finished
	}()

	waitForHttpServer(t)

	t.Run("card_purchase_to_redemption", func(t *testing.T) {
		testCardPurchaseToRedemption(t, env)
	})
	t.Run("paypal_purchase", func(t *testing.T) {
		testPayPalPurchase(t, env)
	})
	t.Run("free_purchase", func(t *testing.T) {
		testFreePurchase(t, env)
	})
}

func testCardPurchaseToRedemption(t *testing.T, env testEnv) {
	event := createEvent(t, map[string]any{
		"title":     "Jazz Night",
		"starts_at": time.Now().Add(48 * time.Hour),
		"location":  "Main Hall",
		"currency":  "USD",
		"categories": []map[string]any{
			{"name": "Table Seat", "price": "40.00", "quantity_total": 2},
		},
	})
	categoryID := event.Categories[0].CategoryID

	order := placeOrder(t, event.EventID, map[string]any{
		"customer_name":  "Ada Lovelace",
		"customer_email": "ada@example.com",
		"items":          []map[string]any{{"category_id": categoryID, "quantity": 2}},
	})
	assert.True(t, order.PaymentRequired)
	assert.Equal(t, "80.00", order.TotalAmount)

	var payment paymentResponse
	status := sendRequest(t, http.MethodPost, "/orders/"+order.OrderID+"/payments/card", nil, &payment)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, payment.Tickets, 2)
	assert.Equal(t, "completed", payment.Status)

	// the category is sold out now
	status = sendRequest(t, http.MethodPost, "/events/"+event.EventID+"/orders", map[string]any{
		"customer_name":  "Grace Hopper",
		"customer_email": "grace@example.com",
		"items":          []map[string]any{{"category_id": categoryID, "quantity": 1}},
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	assertReceiptIssued(t, env.gateway, order.OrderID, "80.00")
	assertTicketsDelivered(t, env, order.OrderNumber, payment.Tickets)

	credential := payment.Tickets[0].CredentialPayload

	var redeemed redeemResponse
	status = sendRequest(t, http.MethodPost, "/tickets/redeem", map[string]any{
		"payload":  credential,
		"staff_id": "door-1",
	}, &redeemed)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, redeemed.Success)
	assert.Equal(t, payment.Tickets[0].TicketNumber, redeemed.TicketNumber)

	var again redeemResponse
	status = sendRequest(t, http.MethodPost, "/tickets/redeem", map[string]any{
		"payload":  credential,
		"staff_id": "door-2",
	}, &again)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_redeemed", again.ErrorKind)

	forged := strings.Replace(credential, order.OrderID, shortuuid.New(), 1)
	status = sendRequest(t, http.MethodPost, "/tickets/redeem", map[string]any{"payload": forged}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		var opsOrder entity.OpsOrder
		status := sendRequest(t, http.MethodGet, "/ops/orders/"+order.OrderID, nil, &opsOrder)
		if !assert.Equal(t, http.StatusOK, status) {
			return
		}

		assert.Equal(t, entity.PaymentMethodCard, opsOrder.PaymentMethod)
		assert.Len(t, opsOrder.Tickets, 2)

		redeemedTickets := 0
		for _, ticket := range opsOrder.Tickets {
			if !ticket.RedeemedAt.IsZero() {
				redeemedTickets++
				assert.Equal(t, "door-1", ticket.RedeemedBy)
			}
		}
		assert.Equal(t, 1, redeemedTickets)
	}, 10*time.Second, 100*time.Millisecond)
}

func testPayPalPurchase(t *testing.T, env testEnv) {
	event := createEvent(t, map[string]any{
		"title":      "Wine Tasting",
		"starts_at":  time.Now().Add(72 * time.Hour),
		"location":   "Terrace",
		"currency":   "USD",
		"base_price": "25.00",
	})

	order := placeOrder(t, event.EventID, map[string]any{
		"customer_name":  "Alan Turing",
		"customer_email": "alan@example.com",
		"payment_method": "paypal",
		"items":          []map[string]any{{"quantity": 3}},
	})
	require.NotNil(t, order.PaymentHandle)
	assert.NotEmpty(t, order.PaymentHandle.ApprovalURL)

	authorizationID := order.PaymentHandle.AuthorizationID

	var first paymentResponse
	status := sendRequest(t, http.MethodGet, "/payments/return?token="+authorizationID, nil, &first)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, first.Tickets, 3)

	var second paymentResponse
	status = sendRequest(t, http.MethodPost, "/orders/"+order.OrderID+"/payments/capture", map[string]any{
		"authorization_id": authorizationID,
	}, &second)
	require.Equal(t, http.StatusOK, status)

	assert.ElementsMatch(t, ticketNumbers(first.Tickets), ticketNumbers(second.Tickets))
	assert.Equal(t, 1, env.provider.CapturesCount(authorizationID))

	assertReceiptIssued(t, env.gateway, order.OrderID, "75.00")
}

func testFreePurchase(t *testing.T, env testEnv) {
	event := createEvent(t, map[string]any{
		"title":      "Open Mic",
		"starts_at":  time.Now().Add(24 * time.Hour),
		"currency":   "USD",
		"base_price": "0",
	})

	order := placeOrder(t, event.EventID, map[string]any{
		"customer_name":  "Edsger Dijkstra",
		"customer_email": "edsger@example.com",
		"items":          []map[string]any{{"quantity": 1}},
	})
	assert.False(t, order.PaymentRequired)

	var details orderDetailsResponse
	status := sendRequest(t, http.MethodGet, "/orders/"+order.OrderID, nil, &details)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", details.Order.PaymentStatus)
	assert.Len(t, details.Tickets, 1)

	assertTicketsDelivered(t, env, order.OrderNumber, details.Tickets)
}

type eventResponse struct {
	EventID    string `json:"event_id"`
	Categories []struct {
		CategoryID string `json:"category_id"`
	} `json:"categories"`
}

type orderResponse struct {
	OrderID         string                `json:"order_id"`
	OrderNumber     string                `json:"order_number"`
	TotalAmount     string                `json:"total_amount"`
	PaymentRequired bool                  `json:"payment_required"`
	PaymentHandle   *entity.Authorization `json:"payment_handle"`
}

type ticketResponse struct {
	TicketNumber      string `json:"ticket_number"`
	CredentialPayload string `json:"credential_payload"`
}

type paymentResponse struct {
	Status  string           `json:"status"`
	Tickets []ticketResponse `json:"tickets"`
}

type orderDetailsResponse struct {
	Order struct {
		PaymentStatus string `json:"payment_status"`
	} `json:"order"`
	Tickets []ticketResponse `json:"tickets"`
}

type redeemResponse struct {
	Success      bool   `json:"success"`
	ErrorKind    string `json:"error_kind"`
	TicketNumber string `json:"ticket_number"`
}

func ticketNumbers(tickets []ticketResponse) []string {
	numbers := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		numbers = append(numbers, ticket.TicketNumber)
	}
	return numbers
}

func createEvent(t *testing.T, body map[string]any) eventResponse {
	t.Helper()

	var event eventResponse
	status := sendRequest(t, http.MethodPost, "/events", body, &event)
	require.Equal(t, http.StatusCreated, status)

	status = sendRequest(t, http.MethodGet, "/events/"+event.EventID, nil, &event)
	require.Equal(t, http.StatusOK, status)

	return event
}

func placeOrder(t *testing.T, eventID string, body map[string]any) orderResponse {
	t.Helper()

	var order orderResponse
	status := sendRequest(t, http.MethodPost, "/events/"+eventID+"/orders", body, &order)
	require.Equal(t, http.StatusCreated, status)

	return order
}

func assertReceiptIssued(t *testing.T, gw *gateway.GatewayMock, orderID string, amount string) {
	t.Helper()

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		receipt, ok := gw.Receipts()[orderID]
		if !assert.True(t, ok, "receipt for order %s not found", orderID) {
			return
		}
		assert.Equal(t, amount, receipt.Price.Amount)
	}, 10*time.Second, 100*time.Millisecond)
}

func assertTicketsDelivered(t *testing.T, env testEnv, orderNumber string, tickets []ticketResponse) {
	t.Helper()

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		for _, ticket := range tickets {
			content, err := env.gateway.DownloadFile(context.Background(), ticket.TicketNumber+"-ticket.html")
			if !assert.NoError(t, err) {
				return
			}
			assert.Contains(t, content, orderNumber)
		}

		found := false
		for _, row := range env.gateway.Rows("tickets-to-deliver") {
			if len(row) > 0 && row[0] == orderNumber {
				found = true
			}
		}
		assert.True(t, found, "order %s not in tickets-to-deliver", orderNumber)
	}, 10*time.Second, 100*time.Millisecond)
}

func sendRequest(t assert.TestingT, method string, path string, body any, out any) int {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if !assert.NoError(t, err) {
			return 0
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if !assert.NoError(t, err) {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Correlation-ID", "test_"+shortuuid.New())

	// no redirects, the return endpoint answers with JSON without a redirect URL
	resp, err := http.DefaultClient.Do(req)
	if !assert.NoError(t, err) {
		return 0
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if !assert.NoError(t, err) {
		return 0
	}

	if out != nil && resp.StatusCode < 500 && len(respBody) > 0 {
		assert.NoError(t, json.Unmarshal(respBody, out), fmt.Sprintf("%s %s: %s", method, path, respBody))
	}

	return resp.StatusCode
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
