package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api"
	"github.com/rosilesmarcos01/bbms-sub000/internal/audit"
	"github.com/rosilesmarcos01/bbms-sub000/internal/cliconfig"
	"github.com/rosilesmarcos01/bbms-sub000/internal/config"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/engine"
	"github.com/rosilesmarcos01/bbms-sub000/internal/issuers"
	"github.com/rosilesmarcos01/bbms-sub000/internal/logging"
	"github.com/rosilesmarcos01/bbms-sub000/internal/metrics"
	"github.com/rosilesmarcos01/bbms-sub000/internal/providers"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
	"github.com/rosilesmarcos01/bbms-sub000/internal/store"
	"github.com/rosilesmarcos01/bbms-sub000/internal/tasks"
	"github.com/rosilesmarcos01/bbms-sub000/pkg/client"
)

const (
	sweepTaskName        = "registry-sweep"
	policyReloadTaskName = "policy-reload"
)

type Factory struct {
	// RemoteAddr is the address of the BBMS server to connect to.
	RemoteAddr string

	// ConfigPath is the server configuration file.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) serverAddr() (string, error) {
	if f.RemoteAddr == "" {
		return "", fmt.Errorf("server address not configured (use --server or set BBMS_ADDR)")
	}
	return f.RemoteAddr, nil
}

// GetClient returns an HTTP client for remote operations, authenticated if a session is stored.
func (f *Factory) GetClient() (*client.Client, error) {
	server, err := f.serverAddr()
	if err != nil {
		return nil, err
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			token = cred.AccessToken
		}
	}

	if envToken := viper.GetString(TokenKey); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadServerConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return nil, fmt.Errorf("config file not specified (use --config)")
	}
	return config.Load(f.ConfigPath)
}

// NewTokenIssuer creates the issuer from the token config and the BBMS_SIGNING_KEY secret.
func (f *Factory) NewTokenIssuer(cfg config.TokenConfig) (*issuers.TokenIssuer, error) {
	key := viper.GetString(SigningKeyKey)
	if key == "" {
		return nil, errors.New("signing key not configured (set BBMS_SIGNING_KEY)")
	}
	return issuers.NewTokenIssuer(issuers.Config{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		SigningKey: []byte(key),
	})
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "bbms.yaml", "The BBMS server config file to use")
}

// Runtime is a fully wired server.
type Runtime struct {
	Server      *api.Server
	Sessions    *service.SessionService
	Policies    *engine.PolicyManager
	TaskManager *tasks.Manager

	closers []io.Closer
}

func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}

// BuildRuntime wires every component from the config. Background tasks stop with ctx.
func (f *Factory) BuildRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}
	fail := func(err error) (*Runtime, error) {
		rt.Close()
		return nil, err
	}

	log.Info().Str("type", cfg.Provider.Type).Msg("Initializing identity provider...")
	gateway, err := providers.BuildGateway(cfg.Provider)
	if err != nil {
		return fail(fmt.Errorf("building provider: %w", err))
	}

	log.Info().Str("type", cfg.Registry.Type).Msg("Initializing operation registry...")
	registry, err := f.buildRegistry(ctx, rt, cfg.Registry)
	if err != nil {
		return fail(err)
	}

	log.Info().Str("type", cfg.Identities.Type).Msg("Initializing identity directory...")
	identities, err := f.buildIdentities(rt, cfg.Identities)
	if err != nil {
		return fail(err)
	}

	issuer, err := f.NewTokenIssuer(cfg.Tokens)
	if err != nil {
		return fail(err)
	}

	auditor, err := audit.New(cfg.Audit.Enabled, cfg.Audit.Type, cfg.Audit.Path)
	if err != nil {
		return fail(fmt.Errorf("creating auditor: %w", err))
	}
	rt.closers = append(rt.closers, auditor)
	auditReader, _ := auditor.(core.AuditReader)

	m := metrics.New()
	rt.Policies = engine.NewManager(cfg.Policy)
	rt.Sessions = service.NewSessionService(
		gateway,
		registry,
		identities,
		rt.Policies,
		issuer,
		auditor,
		m,
		cfg.Registry.OperationTTL,
	)

	rt.TaskManager = tasks.NewManager(ctx)
	sessions := rt.Sessions
	rt.TaskManager.Register(sweepTaskName, cfg.Registry.SweepInterval, func(ctx context.Context, logger logging.InternalLogger) error {
		evicted, err := sessions.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweeping registry: %w", err)
		}
		if evicted > 0 {
			logger.Info("evicted %d expired operations", evicted)
		} else {
			logger.Debug("nothing to evict")
		}
		return nil
	})

	// only on demand: admin trigger or SIGHUP
	if f.ConfigPath != "" {
		rt.TaskManager.Register(policyReloadTaskName, 0, reloadPolicy(f.ConfigPath, rt.Policies))
	}

	rt.Server = api.NewServer(rt.Sessions, rt.TaskManager, auditReader, m, issuer)
	return rt, nil
}

func (f *Factory) buildRegistry(ctx context.Context, rt *Runtime, cfg config.RegistryConfig) (core.OperationRegistry, error) {
	switch cfg.Type {
	case "redis":
		reg, err := store.NewRedisOperationRegistry(store.RedisConfig{
			Addr:              cfg.Redis.Addr,
			Password:          cfg.Redis.Password,
			DB:                cfg.Redis.DB,
			KeyPrefix:         cfg.Redis.KeyPrefix,
			ConsumedRetention: cfg.ConsumedRetention,
		})
		if err != nil {
			return nil, fmt.Errorf("creating redis registry: %w", err)
		}
		rt.closers = append(rt.closers, reg)
		if err := reg.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return reg, nil
	default:
		return store.NewInMemoryOperationRegistry(cfg.ConsumedRetention), nil
	}
}

func (f *Factory) buildIdentities(rt *Runtime, cfg config.IdentitiesConfig) (core.IdentityStore, error) {
	switch cfg.Type {
	case "postgres":
		dsn := os.ExpandEnv(cfg.DSN)
		ids, err := store.NewPostgresIdentityStore(dsn, cfg.Migrate)
		if err != nil {
			return nil, fmt.Errorf("opening postgres identities: %w", err)
		}
		rt.closers = append(rt.closers, ids)
		return ids, nil
	default:
		log.Info().Int("count", len(cfg.Static)).Msg("Using static identities")
		return store.NewStaticIdentityStore(cfg.Static), nil
	}
}

// reloadPolicy re-reads the policy section of the config file and swaps it in.
// Load validates the whole file, which compiles the review rules, so a broken file
// leaves the running policy untouched. Other sections are not applied.
func reloadPolicy(path string, policies *engine.PolicyManager) tasks.TaskFunc {
	return func(_ context.Context, logger logging.InternalLogger) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("reloading %s: %w", path, err)
		}
		policies.Update(cfg.Policy)
		logger.Info("policy reloaded from %s: face_match_threshold=%.2f confidence_threshold=%.2f rules=%d",
			path, cfg.Policy.FaceMatch(), cfg.Policy.Confidence(), len(cfg.Policy.Rules))
		return nil
	}
}
