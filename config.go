package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// Config is the complete configuration of an [Engine].
//
// Start from [DefaultConfig] and override fields; zero values are not
// defaults.
type Config struct {
	Session SessionConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// SessionConfig controls session identity and record lifetime.
type SessionConfig struct {
	// KeyPrefix namespaces records: key = KeyPrefix + session id.
	KeyPrefix string
	// IDLength is the number of alphanumeric symbols in a minted id.
	IDLength int
	// MaxLifetime is both the record TTL, refreshed on every write, and the
	// cookie Max-Age. Must be a whole number of seconds.
	MaxLifetime time.Duration
	// CookieName is the request attribute holding the inbound id and the name
	// of the issued cookie.
	CookieName string
	// CookieOnFailedWrite issues the cookie even when the write in Set
	// failed. Set it to false to only bind clients to persisted sessions.
	CookieOnFailedWrite bool
}

// CookieConfig holds the attributes of the issued cookie.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is full instead of blocking the
	// request. Drops are counted, see Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the documented defaults: prefix "SESSION:", 26
// symbol ids, a 7200 second lifetime and a host-only "session_id" cookie on
// path "/".
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			KeyPrefix:           session.DefaultKeyPrefix,
			IDLength:            26,
			MaxLifetime:         7200 * time.Second,
			CookieName:          "session_id",
			CookieOnFailedWrite: true,
		},
		Cookie: CookieConfig{
			Path:     "/",
			SameSite: http.SameSiteDefaultMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

const (
	minIDLength = 8
	maxIDLength = 128
)

// Validate checks c and returns an error wrapping [ErrInvalidConfig] for the
// first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	// Session
	if c.Session.KeyPrefix == "" {
		return invalid("Session KeyPrefix must not be empty")
	}
	if c.Session.IDLength < minIDLength || c.Session.IDLength > maxIDLength {
		return invalid(fmt.Sprintf("Session IDLength must be in [%d, %d]", minIDLength, maxIDLength))
	}
	if c.Session.MaxLifetime < time.Second {
		return invalid("Session MaxLifetime must be >= 1s")
	}
	if c.Session.MaxLifetime%time.Second != 0 {
		return invalid("Session MaxLifetime must be a whole number of seconds")
	}
	if !validCookieName(c.Session.CookieName) {
		return invalid("Session CookieName is not a valid cookie name")
	}

	// Cookie
	if strings.ContainsAny(c.Cookie.Path, ";\r\n") {
		return invalid("Cookie Path contains invalid characters")
	}
	if strings.ContainsAny(c.Cookie.Domain, "; \r\n") {
		return invalid("Cookie Domain contains invalid characters")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return invalid("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// validCookieName reports whether name is an RFC 6265 token.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f {
			return false
		}
		if strings.IndexByte(`()<>@,;:\"/[]?={}`, c) >= 0 {
			return false
		}
	}
	return true
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks advisory warnings.
type LintSeverity int

const (
	// LintInfo marks a deliberate but noteworthy setting.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that is usually wrong in production.
	LintWarn
	// LintHigh marks a setting that weakens session security.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding. Codes are stable.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

const (
	lintShortIDLength = 16
	lintLongLifetime  = 24 * time.Hour
)

// Lint reports settings that are valid but questionable. It never fails; use
// [LintResult.AsError] to turn findings into a startup error.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Cookie.Secure {
		add("cookie_not_secure", LintWarn, "session cookie is sent over plain HTTP")
	}
	if !c.Cookie.HTTPOnly {
		add("cookie_not_httponly", LintWarn, "session cookie is readable from scripts")
	}
	if c.Session.CookieOnFailedWrite {
		add("cookie_on_failed_write", LintInfo, "Set issues the cookie even when the write failed")
	}
	if c.Session.IDLength < lintShortIDLength {
		add("id_length_short", LintHigh, fmt.Sprintf("session ids shorter than %d symbols are guessable", lintShortIDLength))
	}
	if c.Session.MaxLifetime > lintLongLifetime {
		add("lifetime_long", LintWarn, "session lifetime exceeds 24h")
	}

	return out
}
