package secheaders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("security headers config not found")
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownFormat      = errors.New("unknown export format")
	ErrInvalidDocument    = errors.New("invalid security headers document")
)

// Environment is the deployment stage a config applies to. It is also the
// persistence key: one active config per environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Environments lists every known environment in promotion order.
func Environments() []Environment {
	return []Environment{Development, Staging, Production}
}

func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case Development:
		return Development, nil
	case Staging:
		return Staging, nil
	case Production:
		return Production, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// Directives maps a camelCase CSP directive name (scriptSrc, ...) to its
// source expressions. A present key with no tokens is meaningful for the flag
// directives (upgradeInsecureRequests, blockAllMixedContent).
type Directives map[string][]string

// Allowlists maps a Permissions-Policy feature name to its allow-list.
// An empty list denies the feature everywhere.
type Allowlists map[string][]string

type CSP struct {
	Enabled    bool       `json:"enabled" yaml:"enabled"`
	Directives Directives `json:"directives" yaml:"directives"`
	ReportOnly bool       `json:"reportOnly" yaml:"reportOnly"`
}

type HSTS struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	MaxAge            int  `json:"maxAge" yaml:"maxAge"`
	IncludeSubDomains bool `json:"includeSubDomains" yaml:"includeSubDomains"`
	Preload           bool `json:"preload" yaml:"preload"`
}

type FrameAction string

const (
	FrameDeny       FrameAction = "deny"
	FrameSameOrigin FrameAction = "sameorigin"
	FrameAllowFrom  FrameAction = "allow-from"
)

type FrameOptions struct {
	Enabled bool        `json:"enabled" yaml:"enabled"`
	Action  FrameAction `json:"action" yaml:"action"`
}

// Toggle is a header without parameters.
type Toggle struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Policy is a header whose value is a single configured token.
type Policy struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Policy  string `json:"policy" yaml:"policy"`
}

type PermissionsPolicy struct {
	Enabled  bool       `json:"enabled" yaml:"enabled"`
	Policies Allowlists `json:"policies" yaml:"policies"`
}

// Config is the structured header policy for one environment. The engine
// treats it as an immutable snapshot; audit fields belong to the repository.
type Config struct {
	ID          string      `json:"id,omitempty" yaml:"id,omitempty"`
	Environment Environment `json:"environment" yaml:"environment"`

	CSP                       CSP               `json:"csp" yaml:"csp"`
	HSTS                      HSTS              `json:"hsts" yaml:"hsts"`
	XFrameOptions             FrameOptions      `json:"xFrameOptions" yaml:"xFrameOptions"`
	XContentTypeOptions       Toggle            `json:"xContentTypeOptions" yaml:"xContentTypeOptions"`
	XXSSProtection            Toggle            `json:"xXssProtection" yaml:"xXssProtection"`
	ReferrerPolicy            Policy            `json:"referrerPolicy" yaml:"referrerPolicy"`
	PermissionsPolicy         PermissionsPolicy `json:"permissionsPolicy" yaml:"permissionsPolicy"`
	CrossOriginEmbedderPolicy Policy            `json:"crossOriginEmbedderPolicy" yaml:"crossOriginEmbedderPolicy"`
	CrossOriginOpenerPolicy   Policy            `json:"crossOriginOpenerPolicy" yaml:"crossOriginOpenerPolicy"`
	CrossOriginResourcePolicy Policy            `json:"crossOriginResourcePolicy" yaml:"crossOriginResourcePolicy"`

	IsActive  bool       `json:"isActive" yaml:"isActive"`
	CreatedBy string     `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty" yaml:"updatedBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// GeneratedHeaders is the compiled result of a Config. It is never persisted.
type GeneratedHeaders struct {
	Environment  Environment       `json:"environment"`
	Headers      map[string]string `json:"headers"`
	Config       Config            `json:"config"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	TotalHeaders int               `json:"totalHeaders"`
}

type Level string

const (
	LevelLow     Level = "Low"
	LevelMedium  Level = "Medium"
	LevelHigh    Level = "High"
	LevelMaximum Level = "Maximum"
)

// Rank orders levels from 0 (Low) to 3 (Maximum).
func (l Level) Rank() int {
	switch l {
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelMaximum:
		return 3
	}
	return 0
}

// Stats summarizes the posture of a config. Recommendations[i] addresses
// Vulnerabilities[i].
type Stats struct {
	TotalHeaders    int      `json:"totalHeaders"`
	SecurityLevel   Level    `json:"securityLevel"`
	Vulnerabilities []string `json:"vulnerabilities"`
	Recommendations []string `json:"recommendations"`
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Clone returns a deep copy of c so stores never alias caller-owned maps.
func (c Config) Clone() Config {
	out := c
	out.CSP.Directives = cloneLists(c.CSP.Directives)
	out.PermissionsPolicy.Policies = cloneLists(c.PermissionsPolicy.Policies)
	if c.CreatedAt != nil {
		t := *c.CreatedAt
		out.CreatedAt = &t
	}
	if c.UpdatedAt != nil {
		t := *c.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func cloneLists[M ~map[string][]string](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = append([]string{}, v...)
	}
	return out
}
