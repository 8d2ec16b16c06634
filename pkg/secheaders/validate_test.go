package secheaders

import (
	"reflect"
	"testing"
)

const unsafeEvalMsg = "CSP script-src contains 'unsafe-eval' (security risk in production)"

func TestValidateDefaultsAreClean(t *testing.T) {
	for _, env := range Environments() {
		res := Validate(Defaults(env))
		if !res.IsValid || len(res.Errors) != 0 {
			t.Fatalf("%s defaults invalid: %v", env, res.Errors)
		}
	}
}

func TestValidateUnsafeEvalInProduction(t *testing.T) {
	cfg := Defaults(Production)
	cfg.CSP.Directives["scriptSrc"] = []string{"'self'", "'unsafe-eval'"}
	res := Validate(cfg)
	if res.IsValid {
		t.Fatalf("expected invalid")
	}
	n := 0
	for _, e := range res.Errors {
		if e == unsafeEvalMsg {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("unsafe-eval message count %d in %v", n, res.Errors)
	}
}

func TestValidateUnsafeSourcesOutsideProduction(t *testing.T) {
	// development defaults carry both unsafe sources and must stay valid
	cfg := Defaults(Development)
	cfg.Environment = Staging
	if res := Validate(cfg); !res.IsValid {
		t.Fatalf("staging should tolerate unsafe sources: %v", res.Errors)
	}
	cfg.Environment = Production
	cfg.CSP.Enabled = false
	if res := Validate(cfg); !res.IsValid {
		t.Fatalf("disabled CSP should not be inspected: %v", res.Errors)
	}
}

func TestValidateOrder(t *testing.T) {
	cfg := Defaults(Development)
	cfg.Environment = Production
	cfg.HSTS.MaxAge = 3600
	cfg.XFrameOptions.Action = FrameAllowFrom
	want := []string{
		unsafeEvalMsg,
		"CSP script-src contains 'unsafe-inline' (security risk in production)",
		"HSTS maxAge should be at least 1 year (31536000 seconds)",
		"X-Frame-Options 'allow-from' is deprecated, use 'deny' or 'sameorigin'",
	}
	res := Validate(cfg)
	if res.IsValid || !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors:\n got %v\nwant %v", res.Errors, want)
	}
}

func TestValidateIgnoresDisabledSections(t *testing.T) {
	cfg := Defaults(Production)
	cfg.HSTS = HSTS{Enabled: false, MaxAge: 10}
	cfg.XFrameOptions = FrameOptions{Enabled: false, Action: FrameAllowFrom}
	if res := Validate(cfg); !res.IsValid {
		t.Fatalf("disabled sections flagged: %v", res.Errors)
	}
}

func TestValidateHSTSBoundary(t *testing.T) {
	cfg := Defaults(Production)
	cfg.HSTS.MaxAge = MinHSTSMaxAge - 1
	if Validate(cfg).IsValid {
		t.Fatalf("max-age just below a year accepted")
	}
	cfg.HSTS.MaxAge = MinHSTSMaxAge
	if !Validate(cfg).IsValid {
		t.Fatalf("max-age of exactly a year rejected")
	}
}
