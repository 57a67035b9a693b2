package gatekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatekit/pkg/bus"
	"github.com/dmitrymomot/gatekit/pkg/config"
	"github.com/dmitrymomot/gatekit/pkg/feature"
	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/kv"
	"github.com/dmitrymomot/gatekit/pkg/license"
	"github.com/dmitrymomot/gatekit/pkg/logger"
	"github.com/dmitrymomot/gatekit/pkg/trial"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

// Store drivers accepted by Config.StoreDriver.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// ErrUnknownStoreDriver indicates Config.StoreDriver names no known driver.
var ErrUnknownStoreDriver = errors.New("gatekit: unknown store driver")

// Config is the env-tagged engine configuration.
type Config struct {
	StoreDriver     string        `env:"GATEKIT_STORE_DRIVER" envDefault:"memory"` // memory, redis or mongo
	KeyPrefix       string        `env:"GATEKIT_KEY_PREFIX" envDefault:"gatekit:"` // prefix for every store key
	VerifyEndpoint  string        `env:"GATEKIT_VERIFY_ENDPOINT"`                  // license verification URL; empty means offline mode
	VerifyTimeout   time.Duration `env:"GATEKIT_VERIFY_TIMEOUT" envDefault:"10s"`
	LicenseTTL      time.Duration `env:"GATEKIT_LICENSE_TTL" envDefault:"30m"`
	TrialLength     time.Duration `env:"GATEKIT_TRIAL_LENGTH" envDefault:"168h"`
	TrialTickPeriod time.Duration `env:"GATEKIT_TRIAL_TICK" envDefault:"24h"`
	LimitsFile      string        `env:"GATEKIT_LIMITS_FILE"` // optional YAML limits file
	LogLevel        slog.Level    `env:"GATEKIT_LOG_LEVEL" envDefault:"info"`
	LogFormat       logger.Format `env:"GATEKIT_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine owns the wired entitlement services and their lifecycle. It is
// the single construction point replacing ad-hoc singletons: build one
// Engine at startup, share it, and Close it on shutdown.
type Engine struct {
	Store    kv.Store
	Registry *feature.Registry
	Tracker  *usage.Tracker
	License  *license.Service
	Trial    *trial.Lifecycle
	Gate     *gate.Gate
	Bus      *bus.Dispatcher

	scheduler *trial.TickerScheduler
	ownsStore bool
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	log       *slog.Logger
	store     kv.Store
	verifier  license.Verifier
	notifier  trial.Notifier
	onBlocked gate.BlockedHandler
}

// WithLogger sets the logger shared by every service.
func WithLogger(log *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStore supplies a store instead of building one from Config. The
// caller keeps ownership; Close will not close it.
func WithStore(store kv.Store) EngineOption {
	return func(o *engineOptions) { o.store = store }
}

// WithVerifier replaces the HTTP verifier built from Config.
func WithVerifier(v license.Verifier) EngineOption {
	return func(o *engineOptions) { o.verifier = v }
}

// WithNotifier sets the trial notification port.
func WithNotifier(n trial.Notifier) EngineOption {
	return func(o *engineOptions) { o.notifier = n }
}

// WithBlockedHandler sets the gate's default blocked handler.
func WithBlockedHandler(h gate.BlockedHandler) EngineOption {
	return func(o *engineOptions) { o.onBlocked = h }
}

// New wires the engine: store, usage tracker, license service, trial
// lifecycle and feature gate. A nil limits source reads as "no limits
// configured" unless Config.LimitsFile points at a YAML file. An in-flight
// trial has its tick re-armed.
func New(ctx context.Context, cfg Config, registry *feature.Registry, limits usage.Source, opts ...EngineOption) (*Engine, error) {
	if registry == nil {
		registry = feature.NewRegistry()
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		logOpts := []logger.Option{logger.WithLevel(cfg.LogLevel)}
		if cfg.LogFormat != "" {
			logOpts = append(logOpts, logger.WithFormat(cfg.LogFormat))
		}
		o.log = logger.New(logOpts...)
	}

	store, ownsStore, err := buildStore(ctx, cfg, o.store)
	if err != nil {
		return nil, err
	}

	if limits == nil {
		if cfg.LimitsFile != "" {
			limits = usage.NewYAMLSource(cfg.LimitsFile)
		} else {
			limits = usage.NewInMemSource(nil)
		}
	}

	tracker, err := usage.NewTracker(ctx, store, limits,
		usage.WithStorageKey(cfg.KeyPrefix+usage.DefaultStorageKey),
		usage.WithLogger(o.log),
	)
	if err != nil {
		if ownsStore {
			_ = store.Close(ctx)
		}
		return nil, err
	}

	verifier := o.verifier
	if verifier == nil {
		if cfg.VerifyEndpoint != "" {
			verifier = license.NewHTTPVerifier(cfg.VerifyEndpoint,
				license.WithVerifyTimeout(cfg.VerifyTimeout))
		} else {
			verifier = offlineVerifier{}
		}
	}

	licenseSvc := license.NewService(store, verifier,
		license.WithTTL(cfg.LicenseTTL),
		license.WithStorageKeys(
			cfg.KeyPrefix+license.DefaultSnapshotKey,
			cfg.KeyPrefix+license.DefaultKeyKey,
		),
		license.WithTierFeatures(map[feature.Tier][]string{
			feature.TierFree:     registry.IDsForTier(feature.TierFree),
			feature.TierPro:      registry.IDsForTier(feature.TierPro),
			feature.TierLifetime: registry.IDsForTier(feature.TierLifetime),
		}),
		license.WithLogger(o.log),
	)

	scheduler := trial.NewTickerScheduler()
	lifecycle := trial.NewLifecycle(store, scheduler, o.notifier,
		trial.WithStorageKey(cfg.KeyPrefix+trial.DefaultStorageKey),
		trial.WithTrialLength(cfg.TrialLength),
		trial.WithTickPeriod(cfg.TrialTickPeriod),
		trial.WithLogger(o.log),
	)
	lifecycle.Resume(ctx)

	gateOpts := []gate.Option{gate.WithLogger(o.log)}
	if o.onBlocked != nil {
		gateOpts = append(gateOpts, gate.WithBlockedHandler(o.onBlocked))
	}
	featureGate := gate.New(registry, tracker, licenseSvc, gateOpts...)

	return &Engine{
		Store:     store,
		Registry:  registry,
		Tracker:   tracker,
		License:   licenseSvc,
		Trial:     lifecycle,
		Gate:      featureGate,
		Bus:       bus.NewDispatcher(featureGate, licenseSvc, lifecycle, bus.WithLogger(o.log)),
		scheduler: scheduler,
		ownsStore: ownsStore,
	}, nil
}

// Close disarms the trial scheduler and closes the store when the engine
// built it.
func (e *Engine) Close(ctx context.Context) error {
	e.scheduler.Stop()
	if e.ownsStore {
		return e.Store.Close(ctx)
	}
	return nil
}

func buildStore(ctx context.Context, cfg Config, override kv.Store) (kv.Store, bool, error) {
	if override != nil {
		return override, false, nil
	}

	switch cfg.StoreDriver {
	case DriverMemory, "":
		return kv.NewMemoryStore(), true, nil

	case DriverRedis:
		var redisCfg kv.RedisConfig
		if err := config.Load(&redisCfg); err != nil {
			return nil, false, err
		}
		store, err := kv.NewRedisStore(ctx, redisCfg)
		if err != nil {
			return nil, false, err
		}
		return store, true, nil

	case DriverMongo:
		var mongoCfg kv.MongoConfig
		if err := config.Load(&mongoCfg); err != nil {
			return nil, false, err
		}
		store, err := kv.NewMongoStore(ctx, mongoCfg)
		if err != nil {
			return nil, false, err
		}
		return store, true, nil

	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, cfg.StoreDriver)
	}
}

// offlineVerifier is used when no verification endpoint is configured:
// every remote check fails, so the license service settles on the cache
// or the free snapshot.
type offlineVerifier struct{}

func (offlineVerifier) Verify(ctx context.Context, key string) (*license.VerifyResult, error) {
	return nil, license.ErrVerificationFailed
}
