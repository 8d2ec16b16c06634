package secheaders

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCheckDocumentAcceptsDefaults(t *testing.T) {
	for _, env := range Environments() {
		b, err := json.Marshal(Defaults(env))
		if err != nil {
			t.Fatal(err)
		}
		if err := CheckDocument(b); err != nil {
			t.Fatalf("%s defaults rejected: %v", env, err)
		}
	}
}

func TestCheckDocumentRejects(t *testing.T) {
	cases := map[string]string{
		"environment":   `{"environment":"qa"}`,
		"directive":     `{"csp":{"enabled":true,"directives":{"scriptSource":["'self'"]}}}`,
		"feature":       `{"permissionsPolicy":{"enabled":true,"policies":{"vr":[]}}}`,
		"negative age":  `{"hsts":{"enabled":true,"maxAge":-5}}`,
		"fraction age":  `{"hsts":{"enabled":true,"maxAge":1.5}}`,
		"frame action":  `{"xFrameOptions":{"enabled":true,"action":"allowall"}}`,
		"token type":    `{"csp":{"enabled":true,"directives":{"imgSrc":[1]}}}`,
		"not an object": `[]`,
	}
	for name, doc := range cases {
		err := CheckDocument([]byte(doc))
		if !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
		var de *DocumentError
		if !errors.As(err, &de) || len(de.Problems) == 0 {
			t.Fatalf("%s: no problems reported", name)
		}
	}
}

func TestDecodeDocument(t *testing.T) {
	cfg, err := DecodeDocument([]byte(`{
		"environment": "staging",
		"csp": {"enabled": true, "directives": {"defaultSrc": ["'self'"], "upgradeInsecureRequests": []}},
		"hsts": {"enabled": true, "maxAge": 63072000, "includeSubDomains": true, "preload": false}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != Staging || cfg.HSTS.MaxAge != 63072000 {
		t.Fatalf("decoded: %+v", cfg)
	}
	if got := BuildCSP(cfg.CSP.Directives); got != "default-src 'self'; upgrade-insecure-requests" {
		t.Fatalf("csp: %q", got)
	}
	if _, err := DecodeDocument([]byte(`{not json`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for malformed json, got %v", err)
	}
}
