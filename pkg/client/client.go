package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to the BBMS authentication server.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

type Option func(c *Client)

// WithAuthToken sets the access token sent with every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type urlBuilder struct {
	base   string
	path   string
	params map[string]string
	query  url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{
		base:   c.baseURL,
		params: map[string]string{},
		query:  url.Values{},
	}
}

func (u *urlBuilder) setPath(path string) *urlBuilder {
	u.path = path
	return u
}

// setPathParam replaces a {name} placeholder of the route.
func (u *urlBuilder) setPathParam(name, value string) *urlBuilder {
	u.params[name] = value
	return u
}

func (u *urlBuilder) addQueryParam(key string, value any) *urlBuilder {
	u.query.Add(key, toString(value))
	return u
}

func (u *urlBuilder) build() string {
	path := u.path
	for name, value := range u.params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	out := u.base + path
	if len(u.query) > 0 {
		out += "?" + u.query.Encode()
	}
	return out
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
