package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field aliases, in lookup order. The feed has renamed keys across revisions;
// the first alias holding a non-empty value wins.
var (
	idAliases        = []string{"id", "symbol", "uuid"}
	titleAliases     = []string{"nazwa_zdarzenia"}
	levelAliases     = []string{"stopien"}
	probAliases      = []string{"prawdopodobienstwo"}
	startAliases     = []string{"obowiazuje_od"}
	endAliases       = []string{"obowiazuje_do"}
	publishedAliases = []string{"opublikowano"}
	descAliases      = []string{"tresc"}
	commentAliases   = []string{"komentarz"}
	officeAliases    = []string{"biuro"}
	areaAliases      = []string{"teryt"}
)

// missingIDSentinels are literal strings some feed revisions emit in the
// identifier field when no identifier exists.
var missingIDSentinels = map[string]struct{}{
	"none": {},
	"null": {},
}

// timeLayouts are tried in order when parsing feed timestamps. Zone-less
// layouts are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize maps one raw feed record into a canonical Warning. It is a pure
// function: no network, no storage, no clock. Missing optional fields become
// nil; unparsable fields are dropped rather than failing the record, so even
// a record with no identifying fields flows on to the fallback-key
// reconciliation path.
func Normalize(raw map[string]any) Warning {
	w := Warning{
		IMGWID:      stableID(raw),
		Title:       firstString(raw, titleAliases),
		Level:       optionalString(raw, levelAliases),
		Probability: probability(raw),
		Start:       optionalTime(raw, startAliases),
		End:         optionalTime(raw, endAliases),
		Published:   optionalTime(raw, publishedAliases),
		Description: optionalString(raw, descAliases),
		Comment:     firstString(raw, commentAliases),
		Office:      firstString(raw, officeAliases),
		Areas:       areaCodes(raw),
	}

	// The raw payload is preserved verbatim for audit; a record that cannot
	// be re-marshaled would have failed JSON decoding upstream.
	if data, err := json.Marshal(raw); err == nil {
		w.Raw = data
	}
	return w
}

// stableID extracts the feed identifier through its aliases, treating the
// known "missing" sentinels as absent.
func stableID(raw map[string]any) *string {
	for _, key := range idAliases {
		s := stringValue(raw[key])
		if s == "" {
			continue
		}
		if _, sentinel := missingIDSentinels[strings.ToLower(s)]; sentinel {
			continue
		}
		return &s
	}
	return nil
}

func firstString(raw map[string]any, aliases []string) string {
	for _, key := range aliases {
		if s := stringValue(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func optionalString(raw map[string]any, aliases []string) *string {
	if s := firstString(raw, aliases); s != "" {
		return &s
	}
	return nil
}

func optionalTime(raw map[string]any, aliases []string) *time.Time {
	s := firstString(raw, aliases)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// probability parses the percent field and clamps it into [0, 100].
// The feed has carried it both as a number and as a string.
func probability(raw map[string]any) int {
	s := firstString(raw, probAliases)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

// areaCodes extracts TERYT codes from a list of strings or, in older feed
// revisions, a single comma- or space-separated string.
func areaCodes(raw map[string]any) []string {
	var value any
	for _, key := range areaAliases {
		if v, ok := raw[key]; ok && v != nil {
			value = v
			break
		}
	}

	switch v := value.(type) {
	case []any:
		codes := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringValue(item); s != "" {
				codes = append(codes, s)
			}
		}
		return codes
	case []string:
		return v
	case string:
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ';' || r == ' '
		})
		codes := make([]string, 0, len(fields))
		for _, f := range fields {
			if f != "" {
				codes = append(codes, f)
			}
		}
		return codes
	default:
		return nil
	}
}

// stringValue renders a scalar feed value as a trimmed string. JSON numbers
// arrive as float64 or json.Number depending on the decoder.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
