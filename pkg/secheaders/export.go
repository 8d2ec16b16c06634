package secheaders

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExportVersion is stamped on JSON snapshots.
const ExportVersion = "1.0.0"

type Format string

const (
	FormatJSON   Format = "json"
	FormatNginx  Format = "nginx"
	FormatApache Format = "apache"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatNginx, FormatApache:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension is the file suffix used when an export is written to disk.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".conf"
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Snapshot is the JSON export document.
type Snapshot struct {
	Environment Environment       `json:"environment"`
	Config      Config            `json:"config"`
	Headers     map[string]string `json:"headers"`
	ExportedAt  string            `json:"exportedAt"`
	Version     string            `json:"version"`
}

// Export renders g in the given format. None of the renderers validate g.
func Export(g GeneratedHeaders, f Format, exportedAt time.Time) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportJSON(g, exportedAt)
	case FormatNginx:
		return []byte(ExportNginx(g)), nil
	case FormatApache:
		return []byte(ExportApache(g)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

func ExportJSON(g GeneratedHeaders, exportedAt time.Time) ([]byte, error) {
	return json.MarshalIndent(Snapshot{
		Environment: g.Environment,
		Config:      g.Config,
		Headers:     g.Headers,
		ExportedAt:  exportedAt.UTC().Format(time.RFC3339Nano),
		Version:     ExportVersion,
	}, "", "  ")
}

// quoteEscaper escapes values written inside double quotes in server configs.
var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func ExportNginx(g GeneratedHeaders) string {
	var b strings.Builder
	writePreamble(&b, g)
	b.WriteString("server {\n")
	b.WriteString("    # Security headers\n")
	for _, name := range orderedNames(g.Headers) {
		fmt.Fprintf(&b, "    add_header %s \"%s\";\n", name, quoteEscaper.Replace(g.Headers[name]))
	}
	b.WriteString("}\n")
	return b.String()
}

func ExportApache(g GeneratedHeaders) string {
	var b strings.Builder
	writePreamble(&b, g)
	b.WriteString("<VirtualHost *:80>\n")
	b.WriteString("    # Security headers\n")
	for _, name := range orderedNames(g.Headers) {
		fmt.Fprintf(&b, "    Header always set %s \"%s\"\n", name, quoteEscaper.Replace(g.Headers[name]))
	}
	b.WriteString("</VirtualHost>\n")
	return b.String()
}

func writePreamble(b *strings.Builder, g GeneratedHeaders) {
	fmt.Fprintf(b, "# Security headers configuration for %s\n", g.Environment)
	fmt.Fprintf(b, "# Generated at %s\n\n", g.GeneratedAt.UTC().Format(time.RFC3339))
}

// orderedNames returns the header names of h in HeaderOrder, followed by any
// names outside it in lexical order.
func orderedNames(h map[string]string) []string {
	out := make([]string, 0, len(h))
	known := make(map[string]bool, len(HeaderOrder))
	for _, name := range HeaderOrder {
		known[name] = true
		if _, ok := h[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range h {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
