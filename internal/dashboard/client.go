package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/payment"
)

// Client talks to the order API. Reads run under the configured fetch
// timeout; mutating calls are never retried automatically — the operator
// re-triggers them by hand.
type Client struct {
	baseURL      string
	fetchTimeout time.Duration
	httpc        *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, fetchTimeout time.Duration) *Client {
	if fetchTimeout <= 0 {
		fetchTimeout = 6 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		fetchTimeout: fetchTimeout,
		httpc:        &http.Client{},
	}
}

// Token returns the current bearer credential, shared with the feed.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

// ListOrders fetches the active order board. Exceeding the fetch timeout
// surfaces a TimeoutError; the caller keeps its last known-good state.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var orders []domain.Order
	err := c.do(fctx, http.MethodGet, "/orders?active=true", nil, &orders)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &domain.TimeoutError{Op: "list orders", Err: err}
	}
	return orders, err
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, target domain.Status, version int64) (*domain.Order, error) {
	body := map[string]any{"status": target, "version": version}
	var o domain.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/status", id), body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) SubmitPayments(ctx context.Context, id int64, entries []payment.Entry) (*domain.Order, error) {
	body := map[string]any{"payments": entries}
	var o domain.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/payments", id), body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError maps HTTP rejections back onto the domain taxonomy the rest of
// the dashboard handles.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &domain.ValidationError{Msg: msg}
	case http.StatusUnauthorized:
		return &domain.AuthenticationError{Reason: msg}
	case http.StatusPaymentRequired:
		return domain.ErrPaymentRequired
	case http.StatusNotFound:
		return domain.ErrOrderNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("rejected transition: %s", msg)
	default:
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, msg)
	}
}
