package authsync

import (
	"errors"
	"time"
)

const defaultMinPasswordLength = 8

// Config defines the synchronizer's tunables. Construct it via DefaultConfig
// and override fields, or supply a fully-populated struct to Builder.WithConfig.
type Config struct {
	Redirect   RedirectConfig
	Validation ValidationConfig
	SignUp     SignUpConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// RedirectConfig controls the navigation coordinator.
type RedirectConfig struct {
	// HomeRoute is the post-sign-in destination.
	HomeRoute Route
	// LoginRoute is the post-sign-out destination.
	LoginRoute Route
	// PreAuthRoutes is the set of routes from which a completed sign-in
	// redirects to HomeRoute. A sign-in observed while already inside the
	// application never navigates.
	PreAuthRoutes []Route
	// GracePeriod bounds the window in which a second notification of the same
	// logical transition is absorbed by the redirect guard. The 100ms default
	// is a heuristic, not load-bearing; tune it rather than relying on it.
	GracePeriod time.Duration
}

// ValidationConfig controls the credential validator.
type ValidationConfig struct {
	// MinPasswordLength defaults to 8. The four character-class requirements
	// (upper, lower, digit, symbol) are fixed.
	MinPasswordLength int
}

// SignUpConfig controls the verification-pending sign-up path.
type SignUpConfig struct {
	// VerificationRedirectDelay is how long after a verification-pending
	// sign-up the synchronizer waits before navigating to the login route,
	// giving the user time to read the check-your-email notice.
	VerificationRedirectDelay time.Duration
}

// AuditConfig controls the fire-and-forget audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the emitter when the buffer
	// is full. The dropped count is observable via AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the dashboard deployment ships with:
// pre-auth routes for login, signup, and the landing page, a 100ms redirect
// grace period, and audit enabled with a shedding 256-event buffer.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Redirect: RedirectConfig{
			HomeRoute:     "/dashboard",
			LoginRoute:    "/login",
			PreAuthRoutes: []Route{"/", "/login", "/signup"},
			GracePeriod:   100 * time.Millisecond,
		},
		Validation: ValidationConfig{
			MinPasswordLength: defaultMinPasswordLength,
		},
		SignUp: SignUpConfig{
			VerificationRedirectDelay: 3 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Redirect.PreAuthRoutes = append([]Route(nil), cfg.Redirect.PreAuthRoutes...)
	return out
}

// Validate rejects configurations the synchronizer cannot operate under.
func (c *Config) Validate() error {
	if c.Redirect.HomeRoute == "" {
		return errors.New("redirect home route required")
	}
	if c.Redirect.LoginRoute == "" {
		return errors.New("redirect login route required")
	}
	if c.Redirect.GracePeriod <= 0 {
		return errors.New("redirect grace period must be positive")
	}
	if c.Redirect.GracePeriod > 10*time.Second {
		return errors.New("redirect grace period unreasonably large")
	}
	if c.Validation.MinPasswordLength < defaultMinPasswordLength {
		return errors.New("minimum password length must be >= 8")
	}
	if c.SignUp.VerificationRedirectDelay < 0 {
		return errors.New("verification redirect delay must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}
