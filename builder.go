package authsync

import (
	"errors"

	"go.uber.org/zap"
)

// Builder assembles a Synchronizer. Every field except the session store is
// optional: a nil navigator disables navigation, a nil sink disables audit
// delivery (the dispatcher still runs when audit is enabled), and the logger
// defaults to a nop.
type Builder struct {
	config    Config
	store     SessionStore
	navigator Navigator
	notifier  Notifier
	auditSink AuditSink
	logger    *zap.Logger
	parser    IdentityParser

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithStore(store SessionStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.navigator = nav
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithIdentityParser installs the fallback used to derive a UserIdentity from
// an access token when the provider sends sessions without a user record.
func (b *Builder) WithIdentityParser(p IdentityParser) *Builder {
	b.parser = p
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and constructs the Synchronizer. The
// builder is single-use.
func (b *Builder) Build() (*Synchronizer, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.store == nil {
		return nil, ErrStoreRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sync := &Synchronizer{
		config:   cfg,
		store:    b.store,
		nav:      b.navigator,
		notifier: b.notifier,
		parser:   b.parser,
		logger:   logger,
		guard:    newRedirectGuard(cfg.Redirect.GracePeriod),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink, logger),
		metrics:  NewMetrics(cfg.Metrics),
	}

	b.built = true

	return sync, nil
}
