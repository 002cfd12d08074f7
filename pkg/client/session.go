package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultWaitTimeout  = 2 * time.Minute
)

// ErrWaitTimeout is returned when an operation is still pending after the wait timeout.
var ErrWaitTimeout = errors.New("verification still pending after wait timeout")

var errStillPending = errors.New("operation pending")

// Initiate starts a verification operation for the identity. An empty purpose means authentication.
func (c *Client) Initiate(ctx context.Context, identityRef string, purpose core.Purpose) (*api.InitiateResponse, error) {
	var resp api.InitiateResponse
	_, err := c.post(ctx, c.url().setPath(api.InitiateRoute).build(), api.InitiatePayload{
		IdentityRef: identityRef,
		Purpose:     string(purpose),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Poll reports the current status of an operation once.
func (c *Client) Poll(ctx context.Context, operationID string) (*api.PollResponse, error) {
	var resp api.PollResponse
	_, err := c.get(ctx, c.url().
		setPath(api.PollRoute).
		setPathParam("operationId", operationID).
		build(), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type WaitOptions struct {
	// Interval between polls. Defaults to DefaultPollInterval.
	Interval time.Duration

	// Timeout bounds the whole wait. Defaults to DefaultWaitTimeout.
	Timeout time.Duration

	// OnPoll is called after every poll that did not end the wait.
	// err is set for transient failures.
	OnPoll func(resp *api.PollResponse, err error)
}

// WaitForSession polls until the operation reaches a terminal status. Transient failures
// (provider unavailable, connection errors) are retried on the next interval. Any terminal
// status is returned without error; callers check resp.Status.
func (c *Client) WaitForSession(ctx context.Context, operationID string, opts WaitOptions) (*api.PollResponse, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWaitTimeout
	}
	maxRetries := uint64(opts.Timeout / opts.Interval)

	var last *api.PollResponse
	err := backoff.Retry(func() error {
		resp, err := c.Poll(ctx, operationID)
		if err != nil {
			if IsTransient(err) {
				notify(opts, nil, err)
				return err
			}
			return backoff.Permanent(err)
		}
		last = resp
		if resp.Status == service.PollPending {
			notify(opts, resp, nil)
			return errStillPending
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Interval), maxRetries), ctx))

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errStillPending):
		return last, ErrWaitTimeout
	case ctx.Err() != nil:
		return last, ctx.Err()
	case IsTransient(err):
		return last, fmt.Errorf("%w: %w", ErrWaitTimeout, err)
	default:
		return last, err
	}
}

func notify(opts WaitOptions, resp *api.PollResponse, err error) {
	if opts.OnPoll != nil {
		opts.OnPoll(resp, err)
	}
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*core.SessionTokens, error) {
	var tokens core.SessionTokens
	_, err := c.post(ctx, c.url().setPath(api.RefreshRoute).build(), api.RefreshPayload{
		RefreshToken: refreshToken,
	}, &tokens)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Me returns the claims and identity of the client's access token.
func (c *Client) Me(ctx context.Context) (*api.MeResponse, error) {
	var me api.MeResponse
	_, err := c.get(ctx, c.url().setPath(api.MeRoute).build(), &me)
	if err != nil {
		return nil, err
	}
	return &me, nil
}
