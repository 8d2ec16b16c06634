package secheaders

import (
	"errors"
	"slices"
	"testing"
)

func TestDefaultsScriptSrcByEnvironment(t *testing.T) {
	dev := Defaults(Development).CSP.Directives["scriptSrc"]
	if !slices.Contains(dev, "'unsafe-inline'") || !slices.Contains(dev, "'unsafe-eval'") {
		t.Fatalf("development script-src: %v", dev)
	}
	for _, env := range []Environment{Staging, Production} {
		src := Defaults(env).CSP.Directives["scriptSrc"]
		if slices.Contains(src, "'unsafe-inline'") || slices.Contains(src, "'unsafe-eval'") {
			t.Fatalf("%s script-src allows unsafe sources: %v", env, src)
		}
		if !slices.Contains(src, DefaultCDN) {
			t.Fatalf("%s script-src lost the CDN: %v", env, src)
		}
	}
	if !slices.Contains(dev, DefaultCDN) {
		t.Fatalf("development script-src lost the CDN: %v", dev)
	}
}

func TestDefaultsSections(t *testing.T) {
	cfg := Defaults(Production)
	if cfg.Environment != Production || !cfg.IsActive {
		t.Fatalf("meta: %s active=%v", cfg.Environment, cfg.IsActive)
	}
	if EnabledSections(cfg) != 10 {
		t.Fatalf("enabled sections: %d", EnabledSections(cfg))
	}
	if cfg.HSTS != (HSTS{Enabled: true, MaxAge: 31536000, IncludeSubDomains: true, Preload: true}) {
		t.Fatalf("hsts: %+v", cfg.HSTS)
	}
	if cfg.XFrameOptions.Action != FrameDeny || cfg.ReferrerPolicy.Policy != "strict-origin-when-cross-origin" {
		t.Fatalf("frame/referrer: %+v %+v", cfg.XFrameOptions, cfg.ReferrerPolicy)
	}
	if cfg.CrossOriginEmbedderPolicy.Policy != "require-corp" ||
		cfg.CrossOriginOpenerPolicy.Policy != "same-origin" ||
		cfg.CrossOriginResourcePolicy.Policy != "same-origin" {
		t.Fatalf("cross-origin policies")
	}
	for _, f := range FeatureOrder {
		allow, ok := cfg.PermissionsPolicy.Policies[f]
		if !ok {
			t.Fatalf("feature %s missing", f)
		}
		selfOnly := f == "autoplay" || f == "encryptedMedia" || f == "fullscreen" || f == "pictureInPicture"
		if selfOnly && !slices.Equal(allow, []string{"'self'"}) {
			t.Fatalf("%s: %v", f, allow)
		}
		if !selfOnly && len(allow) != 0 {
			t.Fatalf("%s should deny all: %v", f, allow)
		}
	}
}

func TestDefaultsAreIndependentCopies(t *testing.T) {
	a := Defaults(Production)
	a.CSP.Directives["scriptSrc"] = append(a.CSP.Directives["scriptSrc"], "'unsafe-eval'")
	a.PermissionsPolicy.Policies["camera"] = []string{"*"}
	b := Defaults(Production)
	if slices.Contains(b.CSP.Directives["scriptSrc"], "'unsafe-eval'") || len(b.PermissionsPolicy.Policies["camera"]) != 0 {
		t.Fatalf("defaults share state between calls")
	}
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]Environment{
		"development": Development,
		" Staging ":   Staging,
		"PRODUCTION":  Production,
	} {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Fatalf("ParseEnvironment(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEnvironment("qa"); !errors.Is(err, ErrUnknownEnvironment) {
		t.Fatalf("expected ErrUnknownEnvironment, got %v", err)
	}
}
