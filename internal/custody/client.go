package custody

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a remote custody registry over REST:
//
//	GET  /tokens/{id}/owner     -> {"owner": "..."}
//	GET  /tokens/{id}/royalty   -> {"recipient": "...", "rate_bps": 500}
//	POST /tokens/{id}/transfer  <- {"from": "...", "to": "..."}
type Client struct {
	read  *resty.Client
	write *resty.Client
}

type apiError struct {
	Error string `json:"error"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

type royaltyResponse struct {
	Recipient string `json:"recipient"`
	RateBps   int64  `json:"rate_bps"`
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	// lookups are idempotent and may be retried, transfers never are
	read := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	write := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &Client{read: read, write: write}
}

func (c *Client) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	var out ownerResponse
	var apiErr apiError
	resp, err := c.read.R().
		SetContext(ctx).
		SetPathParam("id", tokenID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/tokens/{id}/owner")
	if err := check(resp, err, &apiErr, tokenID); err != nil {
		return "", err
	}
	return out.Owner, nil
}

func (c *Client) RoyaltyInfo(ctx context.Context, tokenID string) (string, int64, error) {
	var out royaltyResponse
	var apiErr apiError
	resp, err := c.read.R().
		SetContext(ctx).
		SetPathParam("id", tokenID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/tokens/{id}/royalty")
	if err := check(resp, err, &apiErr, tokenID); err != nil {
		return "", 0, err
	}
	return out.Recipient, out.RateBps, nil
}

func (c *Client) TransferCustody(ctx context.Context, tokenID, from, to string) error {
	var apiErr apiError
	resp, err := c.write.R().
		SetContext(ctx).
		SetPathParam("id", tokenID).
		SetBody(transferRequest{From: from, To: to}).
		SetError(&apiErr).
		Post("/tokens/{id}/transfer")
	return check(resp, err, &apiErr, tokenID)
}

func check(resp *resty.Response, err error, apiErr *apiError, tokenID string) error {
	if err != nil {
		return fmt.Errorf("custody request for %s: %w", tokenID, err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := apiErr.Error
	if msg == "" {
		msg = resp.Status()
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", ErrUnknownToken, tokenID, msg)
	case http.StatusConflict, http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", ErrNotHolder, tokenID, msg)
	default:
		return fmt.Errorf("custody %s: %s", tokenID, msg)
	}
}
