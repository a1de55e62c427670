package treasury

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client forwards fees to a remote treasury:
//
//	POST   /funds             <- {"amount": "0.05", "memo": "..."} -> {"receipt": "..."}
//	DELETE /funds/{receipt}
//
// Every forward carries an Idempotency-Key so a retried request is not
// booked twice.
type Client struct {
	rc *resty.Client
}

type forwardRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Memo   string          `json:"memo"`
}

type forwardResponse struct {
	Receipt string `json:"receipt"`
}

type apiError struct {
	Error string `json:"error"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	return &Client{rc: rc}
}

func (c *Client) ForwardFunds(ctx context.Context, amount decimal.Decimal, memo string) (string, error) {
	var out forwardResponse
	var apiErr apiError
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(forwardRequest{Amount: amount, Memo: memo}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/funds")
	if err != nil {
		return "", fmt.Errorf("treasury forward: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("treasury forward: %s", errorMessage(resp, &apiErr))
	}
	if out.Receipt == "" {
		return "", fmt.Errorf("treasury forward: empty receipt")
	}
	return out.Receipt, nil
}

func (c *Client) RevertFunds(ctx context.Context, receipt string) error {
	var apiErr apiError
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("receipt", receipt).
		SetError(&apiErr).
		Delete("/funds/{receipt}")
	if err != nil {
		return fmt.Errorf("treasury revert %s: %w", receipt, err)
	}
	if resp.IsError() {
		return fmt.Errorf("treasury revert %s: %s", receipt, errorMessage(resp, &apiErr))
	}
	return nil
}

func errorMessage(resp *resty.Response, apiErr *apiError) string {
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return resp.Status()
}
