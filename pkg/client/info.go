package client

import (
	"context"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api"
	"github.com/rosilesmarcos01/bbms-sub000/internal/buildinfo"
)

// Info returns the build information of the server.
func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().setPath(api.AboutRoute).build(), &info)
	return &info, correlation, err
}
