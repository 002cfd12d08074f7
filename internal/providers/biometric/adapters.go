package biometric

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// operationAdapter hides the endpoint family of one purpose.
type operationAdapter interface {
	// path is the endpoint family root, e.g. /omni/enrollments.
	path() string
	status(ctx context.Context, c *client, operationID string) (core.OperationStatus, error)
}

// enrollmentAdapter speaks the enrollment family which reports numeric state and result codes.
//
//	state:  0 created, 1 in progress, 2 completed, 3 expired
//	result: 1 success, 2 failure
type enrollmentAdapter struct {
	root string
}

const (
	enrollmentStateCreated    = 0
	enrollmentStateInProgress = 1
	enrollmentStateCompleted  = 2
	enrollmentStateExpired    = 3

	enrollmentResultSuccess = 1
	enrollmentResultFailure = 2
)

func (a enrollmentAdapter) path() string {
	return a.root
}

func (a enrollmentAdapter) status(ctx context.Context, c *client, operationID string) (core.OperationStatus, error) {
	body, err := c.get(ctx, "", fmt.Sprintf("%s/%s", a.root, operationID))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return core.Pending("not yet visible"), nil
		}
		return core.OperationStatus{}, err
	}

	state, ok := parseCode(body.Get("state"))
	if !ok {
		return core.Unknown("missing state"), nil
	}
	raw := fmt.Sprintf("state=%d", state)

	switch state {
	case enrollmentStateCreated, enrollmentStateInProgress:
		return core.Pending(raw), nil
	case enrollmentStateExpired:
		return core.Expired(raw), nil
	case enrollmentStateCompleted:
		result, _ := parseCode(body.Get("result"))
		raw = fmt.Sprintf("%s result=%d", raw, result)
		completedAt := parseTimestamp(body.Get("completedAt"))
		switch result {
		case enrollmentResultSuccess:
			return core.Completed(core.ResultSuccess, completedAt, raw), nil
		case enrollmentResultFailure:
			return core.Completed(core.ResultFailure, completedAt, raw), nil
		default:
			return core.Unknown(raw), nil
		}
	default:
		return core.Unknown(raw), nil
	}
}

// authenticationAdapter speaks the authentication family which reports status names.
type authenticationAdapter struct {
	root string
}

func (a authenticationAdapter) path() string {
	return a.root
}

func (a authenticationAdapter) status(ctx context.Context, c *client, operationID string) (core.OperationStatus, error) {
	body, err := c.get(ctx, "", fmt.Sprintf("%s/%s/status", a.root, operationID))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return core.Pending("not yet visible"), nil
		}
		return core.OperationStatus{}, err
	}

	status := strings.ToUpper(strings.TrimSpace(body.Get("status").String()))
	raw := "status=" + status

	switch status {
	case "PENDING", "CREATED", "CAPTURING":
		return core.Pending(raw), nil
	case "EXPIRED", "CANCELLED":
		return core.Expired(raw), nil
	case "DONE":
		outcome := strings.ToUpper(strings.TrimSpace(body.Get("outcome").String()))
		raw = fmt.Sprintf("%s outcome=%s", raw, outcome)
		finishedAt := parseTimestamp(body.Get("finishedAt"))
		switch outcome {
		case "PASS":
			return core.Completed(core.ResultSuccess, finishedAt, raw), nil
		case "FAIL":
			return core.Completed(core.ResultFailure, finishedAt, raw), nil
		default:
			return core.Unknown(raw), nil
		}
	default:
		return core.Unknown(raw), nil
	}
}

func fetchProof(ctx context.Context, c *client, root, operationID string) (*core.ProofPayload, error) {
	body, err := c.get(ctx, "", fmt.Sprintf("%s/%s/proof", root, operationID))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.ErrProofUnavailable.Withf("provider has no proof for operation '%s'", operationID)
		}
		return nil, err
	}
	return parseProof(body)
}

func handoffURL(body gjson.Result, captureURL, operationID string) string {
	if u := body.Get("handoffUrl").String(); u != "" {
		return u
	}
	u := fmt.Sprintf("%s/%s", captureURL, operationID)
	if secret := body.Get("oneTimeSecret").String(); secret != "" {
		u += "?secret=" + url.QueryEscape(secret)
	}
	return u
}
