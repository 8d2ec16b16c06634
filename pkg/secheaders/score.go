package secheaders

// posture checks run in this order; each adds at most one finding.
var postureChecks = []struct {
	match          func(Config) bool
	vulnerability  string
	recommendation string
}{
	{
		match:          func(c Config) bool { return c.CSP.Enabled && scriptSrcHas(c, sourceUnsafeEval) },
		vulnerability:  "CSP script-src contains 'unsafe-eval'",
		recommendation: "Remove 'unsafe-eval' from CSP script-src",
	},
	{
		match:          func(c Config) bool { return c.CSP.Enabled && scriptSrcHas(c, sourceUnsafeInline) },
		vulnerability:  "CSP script-src contains 'unsafe-inline'",
		recommendation: "Remove 'unsafe-inline' from CSP script-src",
	},
	{
		match:          hstsTooShort,
		vulnerability:  "HSTS maxAge too low",
		recommendation: "Increase HSTS maxAge to at least 1 year",
	},
	{
		match:          func(c Config) bool { return !c.HSTS.Enabled },
		vulnerability:  "HSTS not enabled",
		recommendation: "Enable HSTS to force HTTPS",
	},
	{
		match:          func(c Config) bool { return !c.CSP.Enabled },
		vulnerability:  "CSP not enabled",
		recommendation: "Enable CSP to protect against XSS",
	},
}

// EnabledSections counts the policy sections switched on in cfg.
func EnabledSections(cfg Config) int {
	n := 0
	for _, on := range []bool{
		cfg.CSP.Enabled,
		cfg.HSTS.Enabled,
		cfg.XFrameOptions.Enabled,
		cfg.XContentTypeOptions.Enabled,
		cfg.XXSSProtection.Enabled,
		cfg.ReferrerPolicy.Enabled,
		cfg.PermissionsPolicy.Enabled,
		cfg.CrossOriginEmbedderPolicy.Enabled,
		cfg.CrossOriginOpenerPolicy.Enabled,
		cfg.CrossOriginResourcePolicy.Enabled,
	} {
		if on {
			n++
		}
	}
	return n
}

// Score summarizes how many protections cfg enables against the known
// anti-patterns it contains.
func Score(cfg Config) Stats {
	st := Stats{
		TotalHeaders:    EnabledSections(cfg),
		Vulnerabilities: []string{},
		Recommendations: []string{},
	}
	for _, c := range postureChecks {
		if c.match(cfg) {
			st.Vulnerabilities = append(st.Vulnerabilities, c.vulnerability)
			st.Recommendations = append(st.Recommendations, c.recommendation)
		}
	}
	st.SecurityLevel = levelFor(st.TotalHeaders, len(st.Vulnerabilities))
	return st
}

func levelFor(enabled, vulns int) Level {
	switch {
	case enabled >= 8 && vulns == 0:
		return LevelMaximum
	case enabled >= 6 && vulns <= 2:
		return LevelHigh
	case enabled >= 4 && vulns <= 4:
		return LevelMedium
	}
	return LevelLow
}
