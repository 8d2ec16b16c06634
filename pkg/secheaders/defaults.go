package secheaders

// DefaultCDN is the one third-party script origin the defaults allow.
const DefaultCDN = "https://cdn.jsdelivr.net"

// Defaults returns the safe baseline for env. Only development allows inline
// and eval'd scripts. It is used whenever no stored config can be read.
func Defaults(env Environment) Config {
	scriptSrc := []string{"'self'"}
	if env == Development {
		scriptSrc = append(scriptSrc, sourceUnsafeInline, sourceUnsafeEval)
	}
	scriptSrc = append(scriptSrc, DefaultCDN)

	directives := Directives{
		"defaultSrc":     {"'self'"},
		"scriptSrc":      scriptSrc,
		"styleSrc":       {"'self'", "'unsafe-inline'", "https://fonts.googleapis.com"},
		"imgSrc":         {"'self'", "data:", "https:"},
		"fontSrc":        {"'self'", "https://fonts.gstatic.com"},
		"connectSrc":     {"'self'"},
		"mediaSrc":       {"'self'"},
		"objectSrc":      {"'none'"},
		"childSrc":       {"'self'"},
		"frameSrc":       {"'self'"},
		"workerSrc":      {"'self'"},
		"manifestSrc":    {"'self'"},
		"formAction":     {"'self'"},
		"frameAncestors": {"'none'"},
		"baseUri":        {"'self'"},
	}
	// plain-http dev servers would break under this flag
	if env != Development {
		directives["upgradeInsecureRequests"] = []string{}
	}

	return Config{
		Environment: env,
		CSP:         CSP{Enabled: true, Directives: directives},
		HSTS: HSTS{
			Enabled:           true,
			MaxAge:            MinHSTSMaxAge,
			IncludeSubDomains: true,
			Preload:           true,
		},
		XFrameOptions:       FrameOptions{Enabled: true, Action: FrameDeny},
		XContentTypeOptions: Toggle{Enabled: true},
		XXSSProtection:      Toggle{Enabled: true},
		ReferrerPolicy:      Policy{Enabled: true, Policy: "strict-origin-when-cross-origin"},
		PermissionsPolicy: PermissionsPolicy{
			Enabled: true,
			Policies: Allowlists{
				"camera":             {},
				"microphone":         {},
				"geolocation":        {},
				"payment":            {},
				"usb":                {},
				"accelerometer":      {},
				"gyroscope":          {},
				"magnetometer":       {},
				"ambientLightSensor": {},
				"autoplay":           {"'self'"},
				"encryptedMedia":     {"'self'"},
				"fullscreen":         {"'self'"},
				"pictureInPicture":   {"'self'"},
			},
		},
		CrossOriginEmbedderPolicy: Policy{Enabled: true, Policy: "require-corp"},
		CrossOriginOpenerPolicy:   Policy{Enabled: true, Policy: "same-origin"},
		CrossOriginResourcePolicy: Policy{Enabled: true, Policy: "same-origin"},
		IsActive:                  true,
	}
}
