package secheaders

import "slices"

// MinHSTSMaxAge is one year in seconds.
const MinHSTSMaxAge = 31536000

const (
	sourceUnsafeEval   = "'unsafe-eval'"
	sourceUnsafeInline = "'unsafe-inline'"
)

// Validate reports known insecure patterns in cfg. It never fails; an empty
// error list means the config is valid.
func Validate(cfg Config) ValidationResult {
	errs := []string{}

	if cfg.CSP.Enabled && cfg.Environment == Production {
		if scriptSrcHas(cfg, sourceUnsafeEval) {
			errs = append(errs, "CSP script-src contains 'unsafe-eval' (security risk in production)")
		}
		if scriptSrcHas(cfg, sourceUnsafeInline) {
			errs = append(errs, "CSP script-src contains 'unsafe-inline' (security risk in production)")
		}
	}
	if hstsTooShort(cfg) {
		errs = append(errs, "HSTS maxAge should be at least 1 year (31536000 seconds)")
	}
	if cfg.XFrameOptions.Enabled && cfg.XFrameOptions.Action == FrameAllowFrom {
		errs = append(errs, "X-Frame-Options 'allow-from' is deprecated, use 'deny' or 'sameorigin'")
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func scriptSrcHas(cfg Config, source string) bool {
	return slices.Contains(cfg.CSP.Directives["scriptSrc"], source)
}

func hstsTooShort(cfg Config) bool {
	return cfg.HSTS.Enabled && cfg.HSTS.MaxAge < MinHSTSMaxAge
}
