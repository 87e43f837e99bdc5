// Package redact implements the optional credential/email/IP/key scrubbing
// `lore export` offers, layering gitleaks' pattern rules and a
// Shannon-entropy heuristic on top of dedicated email/IP regexes.
package redact

import (
	"encoding/json"
	"math"
	"net"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretPattern matches high-entropy strings that may be API keys or tokens.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a string to be
// considered a secret: high enough to spare common words/identifiers, low
// enough to catch typical tokens (which run well above 5.0).
const entropyThreshold = 4.5

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ipPattern is a loose IPv4 shape; validity is confirmed with net.ParseIP
// so "1.2.3.4000" or version numbers like "1.2.3.4-beta" don't match.
var ipPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err == nil {
			gitleaksDetector = d
		}
	})
	return gitleaksDetector
}

// Options selects which categories of content to scrub; all default false
// (no redaction) so callers opt in explicitly.
type Options struct {
	Credentials bool // gitleaks pattern rules + entropy heuristic
	Emails      bool
	IPs         bool
	Keys        bool // alias for Credentials kept distinct for CLI flag parity
}

// Any reports whether any redaction category is enabled.
func (o Options) Any() bool {
	return o.Credentials || o.Emails || o.IPs || o.Keys
}

type region struct{ start, end int }

// String replaces flagged spans in s with "[REDACTED]".
func String(s string, opts Options) string {
	if !opts.Any() {
		return s
	}

	var regions []region

	if opts.Credentials || opts.Keys {
		for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
			if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
				regions = append(regions, region{loc[0], loc[1]})
			}
		}
		if d := getDetector(); d != nil {
			for _, f := range d.DetectString(s) {
				if f.Secret == "" {
					continue
				}
				regions = append(regions, findAll(s, f.Secret)...)
			}
		}
	}

	if opts.Emails {
		for _, loc := range emailPattern.FindAllStringIndex(s, -1) {
			regions = append(regions, region{loc[0], loc[1]})
		}
	}

	if opts.IPs {
		for _, loc := range ipPattern.FindAllStringIndex(s, -1) {
			if net.ParseIP(s[loc[0]:loc[1]]) != nil {
				regions = append(regions, region{loc[0], loc[1]})
			}
		}
	}

	if len(regions) == 0 {
		return s
	}
	return applyRegions(s, regions)
}

func findAll(s, needle string) []region {
	var out []region
	from := 0
	for {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			break
		}
		abs := from + idx
		out = append(out, region{abs, abs + len(needle)})
		from = abs + len(needle)
	}
	return out
}

func applyRegions(s string, regions []region) string {
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
		} else {
			merged = append(merged, r)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(s[prev:r.start])
		b.WriteString("[REDACTED]")
		prev = r.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// JSON walks a parsed JSON value (as produced by `lore export --format
// json`) and redacts string leaves in place, skipping id-ish keys the same
// way the source export's structure does, so UUIDs and similar fields
// referenced elsewhere in the document survive redaction intact.
func JSON(v any, opts Options) any {
	if !opts.Any() {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if skipField(k) {
				out[k] = child
				continue
			}
			out[k] = JSON(child, opts)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = JSON(child, opts)
		}
		return out
	case string:
		return String(val, opts)
	default:
		return v
	}
}

func skipField(key string) bool {
	lower := strings.ToLower(key)
	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "ids")
}

// MarshalJSONRedacted marshals v after redacting its string leaves,
// round-tripping through encoding/json so callers don't need struct tags
// to select redactable fields.
func MarshalJSONRedacted(v any, opts Options) ([]byte, error) {
	if !opts.Any() {
		return json.MarshalIndent(v, "", "  ")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return json.MarshalIndent(JSON(parsed, opts), "", "  ")
}
