package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KeyBuilder derives deterministic cache keys from request parameters.
//
// Keys have the form <feature>_<version>_<segment>_<segment>..., where every
// segment is normalised (trimmed, whitespace collapsed, lower-cased) and
// escaped so that the separator can never appear inside a segment.
//
// Contract:
// - Determinism: same inputs produce the same key.
// - Purity: no side effects; safe for concurrent use.
type KeyBuilder struct {
	version string
}

// NewKeyBuilder returns a builder that stamps keys with a schema version
// (for example "v2"). Bumping the version orphans every previously cached entry.
func NewKeyBuilder(version string) KeyBuilder {
	return KeyBuilder{version: version}
}

// Version returns the schema version.
func (b KeyBuilder) Version() string {
	return b.version
}

// Key joins feature, version and segments.
func (b KeyBuilder) Key(feature string, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, feature)
	if b.version != "" {
		parts = append(parts, b.version)
	}
	for _, s := range segments {
		parts = append(parts, escapeSegment(normalizeSegment(s)))
	}
	return strings.Join(parts, "_")
}

var segmentEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

// normalizeSegment folds whitespace and case and composes Unicode, so that
// "Nāshik" typed with a combining macron keys like the precomposed form.
func normalizeSegment(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFC.String(s)), " "))
}

// Coord formats a coordinate rounded to precision decimal places, so that
// nearby positions share a key.
func Coord(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.TrimLeft(s, "-0.") == "" {
		// Normalise negative zero ("-0.0000").
		s = strings.TrimPrefix(s, "-")
	}
	return s
}

// Truncate returns at most n runes of s after whitespace normalisation.
func Truncate(s string, n int) string {
	s = normalizeSegment(s)
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Hash returns the first 16 hex characters of SHA-256 over the canonical JSON
// encoding of input. Map keys are sorted so iteration order never matters.
func Hash(input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:8]), nil
}

// canonicalize produces a deterministic JSON representation of the input.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}
