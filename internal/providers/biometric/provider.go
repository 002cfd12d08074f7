package biometric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/config"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const (
	Type = "biometric"

	DefaultRequestTimeout     = 5 * time.Second
	DefaultAPIKeyHeader       = "X-API-Key"
	DefaultEnrollmentPath     = "/omni/enrollments"
	DefaultAuthenticationPath = "/omni/authentications"
)

var _ core.ProviderGateway = (*Provider)(nil)

type Config struct {
	BaseURL string `mapstructure:"base_url"`

	// APIKey may reference environment variables, e.g. ${IDP_API_KEY}.
	APIKey       string `mapstructure:"api_key"`
	APIKeyHeader string `mapstructure:"api_key_header"`

	// RequestTimeout bounds every single provider call. It is unrelated to the operation TTL.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	EnrollmentPath     string `mapstructure:"enrollment_path"`
	AuthenticationPath string `mapstructure:"authentication_path"`

	// CaptureURL is used to build the handoff url if the provider does not return one.
	// Defaults to {base_url}/capture.
	CaptureURL string `mapstructure:"capture_url"`
}

// Provider talks to the external biometric identity provider. Enrollment and
// authentication operations live in two endpoint families with different status
// shapes; each purpose has its own adapter and the results are normalized here.
type Provider struct {
	name       string
	client     *client
	captureURL string
	adapters   map[core.Purpose]operationAdapter
}

// NewFromConfig creates a new Provider from the given config.
func NewFromConfig(cfg config.ProviderConfig) (*Provider, error) {
	var conf Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &conf,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for biometric provider '%s': %w", cfg.Name, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return nil, fmt.Errorf("failed to decode biometric provider '%s' config: %w", cfg.Name, err)
	}

	return New(cfg.Name, conf, nil)
}

// New creates a Provider. If httpClient is nil, a client with the configured request timeout is used.
func New(name string, conf Config, httpClient *http.Client) (*Provider, error) {
	if conf.BaseURL == "" {
		return nil, fmt.Errorf("biometric provider '%s' requires base_url", name)
	}
	if name == "" {
		name = Type
	}
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")
	conf.APIKey = os.ExpandEnv(conf.APIKey)
	if conf.APIKeyHeader == "" {
		conf.APIKeyHeader = DefaultAPIKeyHeader
	}
	if conf.RequestTimeout <= 0 {
		conf.RequestTimeout = DefaultRequestTimeout
	}
	if conf.EnrollmentPath == "" {
		conf.EnrollmentPath = DefaultEnrollmentPath
	}
	if conf.AuthenticationPath == "" {
		conf.AuthenticationPath = DefaultAuthenticationPath
	}
	if conf.CaptureURL == "" {
		conf.CaptureURL = conf.BaseURL + "/capture"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: conf.RequestTimeout}
	}

	return &Provider{
		name: name,
		client: &client{
			provider:     name,
			baseURL:      conf.BaseURL,
			apiKey:       conf.APIKey,
			apiKeyHeader: conf.APIKeyHeader,
			httpClient:   httpClient,
		},
		captureURL: strings.TrimRight(conf.CaptureURL, "/"),
		adapters: map[core.Purpose]operationAdapter{
			core.PurposeEnrollment:     enrollmentAdapter{root: conf.EnrollmentPath},
			core.PurposeAuthentication: authenticationAdapter{root: conf.AuthenticationPath},
		},
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

type createRequest struct {
	SubjectID      string       `json:"subjectId"`
	Purpose        core.Purpose `json:"purpose"`
	TimeoutSeconds int64        `json:"timeoutSeconds"`
}

func (p *Provider) CreateOperation(
	ctx context.Context,
	subjectRef string,
	purpose core.Purpose,
	timeout time.Duration,
) (*core.ProviderOperation, error) {
	adapter, err := p.adapter(purpose)
	if err != nil {
		return nil, err
	}

	body, err := p.client.post(ctx, subjectRef, adapter.path(), createRequest{
		SubjectID:      subjectRef,
		Purpose:        purpose,
		TimeoutSeconds: int64(timeout.Seconds()),
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.ErrProviderRejected.Withf("provider does not know the subject or endpoint")
		}
		return nil, err
	}

	id := body.Get("operationId").String()
	if id == "" {
		return nil, core.ErrProviderUnavailable.Withf("provider response is missing the operation id")
	}

	log.Ctx(ctx).Debug().
		Str("provider", p.name).
		Str("operation_id", id).
		Str("purpose", string(purpose)).
		Msg("created provider operation")

	return &core.ProviderOperation{
		ID:         id,
		HandoffURL: handoffURL(body, p.captureURL, id),
		ExpiresAt:  parseTimestamp(body.Get("expiresAt")),
	}, nil
}

func (p *Provider) FetchStatus(ctx context.Context, operationID string, purpose core.Purpose) (core.OperationStatus, error) {
	adapter, err := p.adapter(purpose)
	if err != nil {
		return core.OperationStatus{}, err
	}
	return adapter.status(ctx, p.client, operationID)
}

func (p *Provider) FetchProof(ctx context.Context, operationID string, purpose core.Purpose) (*core.ProofPayload, error) {
	adapter, err := p.adapter(purpose)
	if err != nil {
		return nil, err
	}
	return fetchProof(ctx, p.client, adapter.path(), operationID)
}

func (p *Provider) adapter(purpose core.Purpose) (operationAdapter, error) {
	a, ok := p.adapters[purpose]
	if !ok {
		return nil, core.ErrProviderRejected.Withf("unsupported purpose '%s'", purpose)
	}
	return a, nil
}
