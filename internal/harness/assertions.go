package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Subject  string
	Field    string
	Expected any
	Actual   any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Subject != "" {
		fmt.Fprintf(&buf, " [%s]", e.Subject)
	}
	fmt.Fprintf(&buf, " %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %v\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %v", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for _, a := range assertions {
		for _, err := range evaluate(result, a) {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluate(result *Result, a Assertion) []error {
	var (
		subject string
		actual  any
	)
	switch a.Type {
	case AssertProgress:
		actual = result.Progress
	case AssertOrder:
		actual = result.Order
	case AssertCloseGate:
		actual = result.Progress.Close
	case AssertNode:
		subject = a.Node
		for _, n := range result.Progress.Nodes {
			if n.Node == a.Node {
				actual = n
				break
			}
		}
	case AssertRepair:
		subject = a.Bundle
		for _, r := range result.Progress.Repairs {
			if r.BundleID == a.Bundle {
				actual = r
				break
			}
		}
	default:
		return []error{fmt.Errorf("unknown assertion type: %s", a.Type)}
	}
	if actual == nil {
		return []error{&AssertionError{Type: a.Type, Subject: subject, Expected: "present", Actual: "not found"}}
	}
	return matchSubset(a.Type, subject, actual, a.Expect)
}

// matchSubset compares the expected fields against the JSON form of actual.
// Both sides go through JSON so YAML ints and Go ints compare equal.
func matchSubset(typ, subject string, actual any, expect map[string]any) []error {
	got, err := toJSONMap(actual)
	if err != nil {
		return []error{err}
	}
	want, err := toJSONMap(expect)
	if err != nil {
		return []error{err}
	}

	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		g, ok := got[k]
		if !ok && isZero(want[k]) {
			// omitempty dropped a zero value
			continue
		}
		if !reflect.DeepEqual(want[k], g) {
			errs = append(errs, &AssertionError{
				Type: typ, Subject: subject, Field: k,
				Expected: want[k], Actual: g,
			})
		}
	}
	return errs
}

func toJSONMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode for comparison: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode for comparison: %w", err)
	}
	return m, nil
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
