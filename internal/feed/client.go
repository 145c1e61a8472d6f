// Package feed talks to the order backend: it lists pending orders over
// HTTP and listens for change notifications over WebSocket.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/model"
)

// Feed is the order source the reconciliation engine reads from.
type Feed interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	MarkPrinted(ctx context.Context, orderID int64) error
}

// Client is the HTTP implementation of Feed.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logrus.Logger
}

func NewClient(baseURL, apiKey string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ListOrders fetches the current unprinted orders from the backend.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/orders?printed=false", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var payload model.OrderPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, fmt.Errorf("backend rejected order list request")
	}
	return payload.Data.Orders, nil
}

// MarkPrinted tells the backend an order has been physically printed.
func (c *Client) MarkPrinted(ctx context.Context, orderID int64) error {
	body, err := json.Marshal(map[string]bool{"printed": true})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/orders/%d/printed", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(raw))
	}
	c.log.WithField("orderId", orderID).Debug("Order marked as printed on backend")
	return nil
}
