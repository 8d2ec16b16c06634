package secheaders

import (
	"strconv"
	"strings"
	"time"
)

const (
	HeaderCSP                       = "Content-Security-Policy"
	HeaderCSPReportOnly             = "Content-Security-Policy-Report-Only"
	HeaderHSTS                      = "Strict-Transport-Security"
	HeaderXFrameOptions             = "X-Frame-Options"
	HeaderXContentTypeOptions       = "X-Content-Type-Options"
	HeaderXXSSProtection            = "X-XSS-Protection"
	HeaderReferrerPolicy            = "Referrer-Policy"
	HeaderPermissionsPolicy         = "Permissions-Policy"
	HeaderCrossOriginEmbedderPolicy = "Cross-Origin-Embedder-Policy"
	HeaderCrossOriginOpenerPolicy   = "Cross-Origin-Opener-Policy"
	HeaderCrossOriginResourcePolicy = "Cross-Origin-Resource-Policy"
)

// HeaderOrder is the order headers are emitted in by Compile and written by
// the exporters.
var HeaderOrder = []string{
	HeaderCSP,
	HeaderCSPReportOnly,
	HeaderHSTS,
	HeaderXFrameOptions,
	HeaderXContentTypeOptions,
	HeaderXXSSProtection,
	HeaderReferrerPolicy,
	HeaderPermissionsPolicy,
	HeaderCrossOriginEmbedderPolicy,
	HeaderCrossOriginOpenerPolicy,
	HeaderCrossOriginResourcePolicy,
}

// DirectiveOrder is the wire order of CSP directives.
var DirectiveOrder = []string{
	"defaultSrc",
	"scriptSrc",
	"styleSrc",
	"imgSrc",
	"fontSrc",
	"connectSrc",
	"mediaSrc",
	"objectSrc",
	"childSrc",
	"frameSrc",
	"workerSrc",
	"manifestSrc",
	"formAction",
	"frameAncestors",
	"baseUri",
	"upgradeInsecureRequests",
	"blockAllMixedContent",
}

// FeatureOrder is the wire order of Permissions-Policy features.
var FeatureOrder = []string{
	"camera",
	"microphone",
	"geolocation",
	"payment",
	"usb",
	"accelerometer",
	"gyroscope",
	"magnetometer",
	"ambientLightSensor",
	"autoplay",
	"encryptedMedia",
	"fullscreen",
	"pictureInPicture",
}

// directives that are valid without source expressions
var flagDirectives = map[string]bool{
	"upgrade-insecure-requests": true,
	"block-all-mixed-content":   true,
}

// Compile turns cfg into literal header values. Each enabled section yields
// its header independently of the others; disabled sections yield nothing.
func Compile(cfg Config, now time.Time) GeneratedHeaders {
	h := make(map[string]string, len(HeaderOrder))

	if cfg.CSP.Enabled {
		name := HeaderCSP
		if cfg.CSP.ReportOnly {
			name = HeaderCSPReportOnly
		}
		h[name] = BuildCSP(cfg.CSP.Directives)
	}
	if cfg.HSTS.Enabled {
		h[HeaderHSTS] = BuildHSTS(cfg.HSTS)
	}
	if cfg.XFrameOptions.Enabled {
		h[HeaderXFrameOptions] = strings.ToUpper(string(cfg.XFrameOptions.Action))
	}
	if cfg.XContentTypeOptions.Enabled {
		h[HeaderXContentTypeOptions] = "nosniff"
	}
	if cfg.XXSSProtection.Enabled {
		h[HeaderXXSSProtection] = "1; mode=block"
	}
	if cfg.ReferrerPolicy.Enabled {
		h[HeaderReferrerPolicy] = cfg.ReferrerPolicy.Policy
	}
	if cfg.PermissionsPolicy.Enabled {
		h[HeaderPermissionsPolicy] = BuildPermissionsPolicy(cfg.PermissionsPolicy.Policies)
	}
	if cfg.CrossOriginEmbedderPolicy.Enabled {
		h[HeaderCrossOriginEmbedderPolicy] = cfg.CrossOriginEmbedderPolicy.Policy
	}
	if cfg.CrossOriginOpenerPolicy.Enabled {
		h[HeaderCrossOriginOpenerPolicy] = cfg.CrossOriginOpenerPolicy.Policy
	}
	if cfg.CrossOriginResourcePolicy.Enabled {
		h[HeaderCrossOriginResourcePolicy] = cfg.CrossOriginResourcePolicy.Policy
	}

	return GeneratedHeaders{
		Environment:  cfg.Environment,
		Headers:      h,
		Config:       cfg.Clone(),
		GeneratedAt:  now,
		TotalHeaders: len(h),
	}
}

// BuildCSP serializes directives in DirectiveOrder. Directives missing from d,
// and empty non-flag directives, are left out.
func BuildCSP(d Directives) string {
	parts := make([]string, 0, len(DirectiveOrder))
	for _, key := range DirectiveOrder {
		sources, ok := d[key]
		if !ok {
			continue
		}
		name := kebab(key)
		switch {
		case len(sources) > 0:
			parts = append(parts, name+" "+strings.Join(sources, " "))
		case flagDirectives[name]:
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "; ")
}

func BuildHSTS(h HSTS) string {
	v := "max-age=" + strconv.Itoa(h.MaxAge)
	if h.IncludeSubDomains {
		v += "; includeSubDomains"
	}
	if h.Preload {
		v += "; preload"
	}
	return v
}

// BuildPermissionsPolicy serializes every feature in FeatureOrder. A feature
// missing from p is written as feature=(), which denies it. Feature names are
// written as configured.
func BuildPermissionsPolicy(p Allowlists) string {
	parts := make([]string, 0, len(FeatureOrder))
	for _, feature := range FeatureOrder {
		parts = append(parts, feature+"=("+strings.Join(p[feature], " ")+")")
	}
	return strings.Join(parts, ", ")
}

// kebab converts scriptSrc to script-src.
func kebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
