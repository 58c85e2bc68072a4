// Package condition evaluates simple field comparisons and recursive AND/OR condition groups.
package condition

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
)

// MaxGroupDepth bounds the nesting of condition groups.
const MaxGroupDepth = 32

// ErrMaxDepthExceeded is returned when condition groups nest deeper than MaxGroupDepth.
var ErrMaxDepthExceeded = errors.New("condition group nesting exceeds maximum depth")

// ErrUnknownLogicalOperator is returned for group operators other than AND and OR.
var ErrUnknownLogicalOperator = errors.New("unknown logical operator")

// EvaluateSimple resolves condition.Field against input and applies the operator.
// Type mismatches and unknown operators evaluate to false.
func EvaluateSimple(condition models.SimpleCondition, input any) bool {
	actual, found := ResolvePath(input, condition.Field)

	switch condition.Operator {
	case models.OperatorEquals:
		return equals(actual, found, condition.Value)
	case models.OperatorNotEquals:
		return !equals(actual, found, condition.Value)
	case models.OperatorGreaterThan:
		cmp, ok := compare(actual, found, condition.Value)

		return ok && cmp > 0
	case models.OperatorLessThan:
		cmp, ok := compare(actual, found, condition.Value)

		return ok && cmp < 0
	case models.OperatorContains:
		return contains(actual, found, condition.Value)
	case models.OperatorNotContains:
		return !contains(actual, found, condition.Value)
	default:
		return false
	}
}

// EvaluateGroup evaluates every direct condition, then every nested group, and reduces the
// combined results with the group operator. An empty AND group is true, an empty OR group is false.
func EvaluateGroup(group models.ConditionGroup, input any) (bool, error) {
	return evaluateGroup(group, input, 1)
}

func evaluateGroup(group models.ConditionGroup, input any, depth int) (bool, error) {
	if depth > MaxGroupDepth {
		return false, fmt.Errorf("%w (%d)", ErrMaxDepthExceeded, MaxGroupDepth)
	}

	results := make([]bool, 0, len(group.Conditions)+len(group.Groups))

	for _, condition := range group.Conditions {
		results = append(results, EvaluateSimple(condition, input))
	}

	for _, nested := range group.Groups {
		result, err := evaluateGroup(nested, input, depth+1)
		if err != nil {
			return false, err
		}

		results = append(results, result)
	}

	switch group.Operator {
	case models.LogicalAnd:
		for _, result := range results {
			if !result {
				return false, nil
			}
		}

		return true, nil
	case models.LogicalOr:
		for _, result := range results {
			if result {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownLogicalOperator, group.Operator)
	}
}

// ResolvePath walks a dot-separated path through nested maps and slices.
// The second return value is false when any segment is missing.
func ResolvePath(data any, path string) (any, bool) {
	if path == "" {
		return data, true
	}

	current := data

	for _, segment := range strings.Split(path, ".") {
		switch value := current.(type) {
		case map[string]any:
			next, ok := value[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(value) {
				return nil, false
			}

			current = value[index]
		default:
			return nil, false
		}
	}

	return current, true
}

func equals(actual any, found bool, expected any) bool {
	if !found {
		return expected == nil
	}

	if a, ok := toNumber(actual); ok {
		if b, ok := toNumber(expected); ok {
			return a == b
		}

		return false
	}

	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if reflect.TypeOf(actual) != reflect.TypeOf(expected) {
		return false
	}

	if !reflect.TypeOf(actual).Comparable() {
		return false
	}

	return actual == expected
}

// compare returns -1, 0 or 1. Numbers compare numerically, strings lexically, times chronologically.
func compare(actual any, found bool, expected any) (int, bool) {
	if !found || actual == nil || expected == nil {
		return 0, false
	}

	if a, ok := toNumber(actual); ok {
		b, ok := toNumber(expected)
		if !ok {
			return 0, false
		}

		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}

	a, ok := actual.(string)
	if !ok {
		return 0, false
	}

	b, ok := expected.(string)
	if !ok {
		return 0, false
	}

	if ta, err := time.Parse(time.RFC3339, a); err == nil {
		if tb, err := time.Parse(time.RFC3339, b); err == nil {
			return ta.Compare(tb), true
		}
	}

	return strings.Compare(a, b), true
}

func contains(actual any, found bool, expected any) bool {
	if !found {
		return false
	}

	return strings.Contains(stringify(actual), stringify(expected))
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
