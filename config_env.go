package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// envConfig mirrors Config with envdecode tags. Defaults match DefaultConfig.
type envConfig struct {
	KeyPrefix           string        `env:"SESSION_KEY_PREFIX,default=SESSION:"`
	IDLength            int           `env:"SESSION_ID_LENGTH,default=26"`
	MaxLifetime         time.Duration `env:"SESSION_MAX_LIFETIME,default=2h"`
	CookieName          string        `env:"SESSION_COOKIE_NAME,default=session_id"`
	CookieOnFailedWrite bool          `env:"SESSION_COOKIE_ON_FAILED_WRITE,default=true"`

	CookiePath     string `env:"SESSION_COOKIE_PATH,default=/"`
	CookieDomain   string `env:"SESSION_COOKIE_DOMAIN"`
	CookieSecure   bool   `env:"SESSION_COOKIE_SECURE,default=false"`
	CookieHTTPOnly bool   `env:"SESSION_COOKIE_HTTPONLY,default=false"`
	// lax, strict, none or empty for the browser default.
	CookieSameSite string `env:"SESSION_COOKIE_SAMESITE"`

	AuditEnabled    bool `env:"SESSION_AUDIT_ENABLED,default=false"`
	AuditBufferSize int  `env:"SESSION_AUDIT_BUFFER_SIZE,default=1024"`
	AuditDropIfFull bool `env:"SESSION_AUDIT_DROP_IF_FULL,default=true"`

	MetricsEnabled    bool `env:"SESSION_METRICS_ENABLED,default=false"`
	LatencyHistograms bool `env:"SESSION_METRICS_LATENCY_HISTOGRAMS,default=false"`
}

// LoadConfigFromEnv builds a Config from SESSION_* environment variables.
// Unset variables keep their DefaultConfig value. The result is not
// validated.
func LoadConfigFromEnv() (Config, error) {
	var env envConfig
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	sameSite, err := parseSameSite(env.CookieSameSite)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Session: SessionConfig{
			KeyPrefix:           env.KeyPrefix,
			IDLength:            env.IDLength,
			MaxLifetime:         env.MaxLifetime,
			CookieName:          env.CookieName,
			CookieOnFailedWrite: env.CookieOnFailedWrite,
		},
		Cookie: CookieConfig{
			Path:     env.CookiePath,
			Domain:   env.CookieDomain,
			Secure:   env.CookieSecure,
			HTTPOnly: env.CookieHTTPOnly,
			SameSite: sameSite,
		},
		Audit: AuditConfig{
			Enabled:    env.AuditEnabled,
			BufferSize: env.AuditBufferSize,
			DropIfFull: env.AuditDropIfFull,
		},
		Metrics: MetricsConfig{
			Enabled:                 env.MetricsEnabled,
			EnableLatencyHistograms: env.LatencyHistograms,
		},
	}, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return http.SameSiteDefaultMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: unknown SameSite %q", ErrInvalidConfig, v)
	}
}
