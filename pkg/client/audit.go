package client

import (
	"context"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	IdentityRef   string
	OperationID   string
	Fingerprint   string
}

// ListAudits retrieves the latest audit entries from the server, limited to the specified number.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.IdentityRef != "" {
		ub = ub.addQueryParam("identity_ref", opts.IdentityRef)
	}
	if opts.OperationID != "" {
		ub = ub.addQueryParam("operation_id", opts.OperationID)
	}
	if opts.Fingerprint != "" {
		ub = ub.addQueryParam("fingerprint", opts.Fingerprint)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
