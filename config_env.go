package authsync

import (
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig builds a Config from AUTHSYNC_-prefixed environment variables,
// falling back to the defaults for anything unset. Route lists are
// comma-separated.
//
//	AUTHSYNC_HOME_ROUTE, AUTHSYNC_LOGIN_ROUTE, AUTHSYNC_PREAUTH_ROUTES
//	AUTHSYNC_REDIRECT_GRACE, AUTHSYNC_MIN_PASSWORD_LENGTH
//	AUTHSYNC_VERIFICATION_REDIRECT_DELAY
//	AUTHSYNC_AUDIT_ENABLED, AUTHSYNC_AUDIT_BUFFER, AUTHSYNC_AUDIT_DROP_IF_FULL
//	AUTHSYNC_METRICS_ENABLED, AUTHSYNC_METRICS_LATENCY
func LoadConfig() (Config, error) {
	defaults := defaultConfig()

	v := viper.New()
	v.SetEnvPrefix("AUTHSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("HOME_ROUTE", string(defaults.Redirect.HomeRoute))
	v.SetDefault("LOGIN_ROUTE", string(defaults.Redirect.LoginRoute))
	v.SetDefault("PREAUTH_ROUTES", joinRoutes(defaults.Redirect.PreAuthRoutes))
	v.SetDefault("REDIRECT_GRACE", defaults.Redirect.GracePeriod)
	v.SetDefault("MIN_PASSWORD_LENGTH", defaults.Validation.MinPasswordLength)
	v.SetDefault("VERIFICATION_REDIRECT_DELAY", defaults.SignUp.VerificationRedirectDelay)
	v.SetDefault("AUDIT_ENABLED", defaults.Audit.Enabled)
	v.SetDefault("AUDIT_BUFFER", defaults.Audit.BufferSize)
	v.SetDefault("AUDIT_DROP_IF_FULL", defaults.Audit.DropIfFull)
	v.SetDefault("METRICS_ENABLED", defaults.Metrics.Enabled)
	v.SetDefault("METRICS_LATENCY", defaults.Metrics.EnableLatencyHistograms)

	cfg := Config{
		Redirect: RedirectConfig{
			HomeRoute:     Route(v.GetString("HOME_ROUTE")),
			LoginRoute:    Route(v.GetString("LOGIN_ROUTE")),
			PreAuthRoutes: splitRoutes(v.GetString("PREAUTH_ROUTES")),
			GracePeriod:   v.GetDuration("REDIRECT_GRACE"),
		},
		Validation: ValidationConfig{
			MinPasswordLength: v.GetInt("MIN_PASSWORD_LENGTH"),
		},
		SignUp: SignUpConfig{
			VerificationRedirectDelay: v.GetDuration("VERIFICATION_REDIRECT_DELAY"),
		},
		Audit: AuditConfig{
			Enabled:    v.GetBool("AUDIT_ENABLED"),
			BufferSize: v.GetInt("AUDIT_BUFFER"),
			DropIfFull: v.GetBool("AUDIT_DROP_IF_FULL"),
		},
		Metrics: MetricsConfig{
			Enabled:                 v.GetBool("METRICS_ENABLED"),
			EnableLatencyHistograms: v.GetBool("METRICS_LATENCY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func joinRoutes(routes []Route) string {
	parts := make([]string, len(routes))
	for i, r := range routes {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func splitRoutes(raw string) []Route {
	var out []Route
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, Route(part))
		}
	}
	return out
}
