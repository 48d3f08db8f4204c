//go:build test

package testutils

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/mcuadros/go-defaults"
	"github.com/srg/hibou/hibouair"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresencePlaceholder in expected JSON matches any actual value.
const PresencePlaceholder = "<<PRESENCE>>"

type JSONAssertOptions struct {
	IgnoreExtraKeys          bool     `default:"true"`
	AllowPresencePlaceholder bool     `default:"true"`
	IgnoredFields            []string `default:""`
	IgnoreArrayOrder         bool     `default:"false"`
	// FloatTolerance treats numbers this close as equal; sensor values are
	// decoded from tenths and rarely print exactly.
	FloatTolerance float64 `default:"0"`
}

// Option is a functional option for configuring JSONAsserter
type Option func(*JSONAssertOptions)

// JSONAsserter compares JSON documents structurally and reports a readable
// diff. Expected documents may be partial: extra actual keys and values
// marked with PresencePlaceholder are accepted by default.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

// NewJSONAsserter creates a new JSONAsserter with default options
func NewJSONAsserter(t TestingT) *JSONAsserter {
	ja := &JSONAsserter{t: t}
	defaults.SetDefaults(&ja.options)
	return ja
}

// WithOptions applies functional options to the JSONAsserter
func (ja *JSONAsserter) WithOptions(opts ...Option) *JSONAsserter {
	for _, opt := range opts {
		opt(&ja.options)
	}
	return ja
}

// Assert compares actualJSON against expectedJSON
func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) {
	if diff := ja.Diff(actualJSON, expectedJSON); diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
	}
}

// AssertReadings compares readings, as an array sorted by board id, against
// expectedJSON.
func (ja *JSONAsserter) AssertReadings(readings []hibouair.Reading, expectedJSON string) {
	ja.Assert(ReadingsToJSON(readings), expectedJSON)
}

// Diff returns a description of the differences, or "" when the documents
// match under the configured options.
func (ja *JSONAsserter) Diff(actualJSON, expectedJSON string) string {
	var expected, actual any
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v\n%s", err, actualJSON)
	}

	// The differ only takes objects at the root.
	expected = map[string]any{"$": expected}
	actual = map[string]any{"$": actual}

	if len(ja.options.IgnoredFields) > 0 {
		expected = ja.dropIgnored(expected)
		actual = ja.dropIgnored(actual)
	}
	if ja.options.IgnoreArrayOrder {
		sortArrays(expected)
		sortArrays(actual)
	}
	actual = ja.reconcile(expected, actual)

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)

	diff, err := gojsondiff.New().Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	f := formatter.NewAsciiFormatter(expected, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, _ := f.Format(diff)
	return out
}

// reconcile returns actual rewritten so that differences the options accept
// disappear: placeholders take the actual value, extra keys are dropped and
// numbers within tolerance take the expected value.
func (ja *JSONAsserter) reconcile(expected, actual any) any {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return actual
		}
		out := make(map[string]any, len(act))
		for k, v := range act {
			e, known := exp[k]
			switch {
			case !known && ja.options.IgnoreExtraKeys:
				continue
			case !known:
				out[k] = v
			default:
				out[k] = ja.reconcile(e, v)
			}
		}
		for k, e := range exp {
			if _, present := act[k]; present && ja.isPlaceholder(e) {
				out[k] = e
			}
		}
		return out

	case []any:
		act, ok := actual.([]any)
		if !ok {
			return actual
		}
		out := slices.Clone(act)
		for i := range out {
			if i < len(exp) {
				out[i] = ja.reconcile(exp[i], out[i])
			}
		}
		return out

	case float64:
		if a, ok := actual.(float64); ok && math.Abs(a-exp) <= ja.options.FloatTolerance {
			return exp
		}
		return actual

	default:
		if ja.isPlaceholder(expected) {
			return expected
		}
		return actual
	}
}

func (ja *JSONAsserter) isPlaceholder(v any) bool {
	s, ok := v.(string)
	return ok && ja.options.AllowPresencePlaceholder && s == PresencePlaceholder
}

func (ja *JSONAsserter) dropIgnored(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			if !slices.Contains(ja.options.IgnoredFields, k) {
				out[k] = ja.dropIgnored(nested)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ja.dropIgnored(elem)
		}
		return out
	default:
		return v
	}
}

// sortArrays sorts arrays recursively by the JSON form of their elements.
func sortArrays(data any) {
	switch v := data.(type) {
	case map[string]any:
		for _, nested := range v {
			sortArrays(nested)
		}
	case []any:
		for _, elem := range v {
			sortArrays(elem)
		}
		sort.SliceStable(v, func(i, j int) bool {
			a, _ := json.Marshal(v[i])
			b, _ := json.Marshal(v[j])
			return string(a) < string(b)
		})
	}
}

// WithIgnoreExtraKeys sets whether to ignore extra keys in actual JSON
func WithIgnoreExtraKeys(ignore bool) Option {
	return func(opts *JSONAssertOptions) {
		opts.IgnoreExtraKeys = ignore
	}
}

// WithAllowPresencePlaceholder sets whether to allow "<<PRESENCE>>" placeholders
func WithAllowPresencePlaceholder(allow bool) Option {
	return func(opts *JSONAssertOptions) {
		opts.AllowPresencePlaceholder = allow
	}
}

// WithIgnoredFields sets a list of field names to ignore during comparison
func WithIgnoredFields(fields ...string) Option {
	return func(opts *JSONAssertOptions) {
		opts.IgnoredFields = fields
	}
}

// WithIgnoreArrayOrder sets whether to ignore array element order during comparison
func WithIgnoreArrayOrder(ignore bool) Option {
	return func(opts *JSONAssertOptions) {
		opts.IgnoreArrayOrder = ignore
	}
}

// WithFloatTolerance accepts numbers that differ by at most tolerance.
func WithFloatTolerance(tolerance float64) Option {
	return func(opts *JSONAssertOptions) {
		opts.FloatTolerance = tolerance
	}
}
