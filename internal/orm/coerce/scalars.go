package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) ToTyped(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func (t stringType) ToDocument(v any) any { return t.ToTyped(v) }

type integerType struct{}

func (integerType) Name() string { return "integer" }

func (integerType) ToTyped(v any) any {
	if v == nil {
		return nil
	}
	if i, ok := toInt64(v); ok {
		return i
	}
	if f, ok := toFloat64(v); ok {
		if i, ok := floatToInt64(f); ok {
			return i
		}
		return nil
	}
	s, ok := numericString(v)
	if !ok {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if i, ok := floatToInt64(f); ok {
			return i
		}
	}
	return nil
}

// floatToInt64 truncates f, rejecting values outside the int64 range
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (t integerType) ToDocument(v any) any { return t.ToTyped(v) }

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) ToTyped(v any) any {
	if v == nil {
		return nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i)
	}
	f, ok := toFloat64(v)
	if !ok {
		s, isStr := numericString(v)
		if !isStr {
			return nil
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return nil
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func (t floatType) ToDocument(v any) any { return t.ToTyped(v) }

type booleanType struct{}

func (booleanType) Name() string { return "boolean" }

func (booleanType) ToTyped(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y", "on":
			return true
		case "false", "f", "0", "no", "n", "off":
			return false
		}
		return nil
	}
	if i, ok := toInt64(v); ok {
		switch i {
		case 1:
			return true
		case 0:
			return false
		}
		return nil
	}
	if f, ok := toFloat64(v); ok {
		switch f {
		case 1:
			return true
		case 0:
			return false
		}
	}
	return nil
}

func (t booleanType) ToDocument(v any) any { return t.ToTyped(v) }

// timeLayouts are tried in order when parsing strings
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
}

// Times are stored with millisecond precision in UTC, which is what document
// stores keep; truncating here keeps the round trip exact.
type timeType struct{}

func (timeType) Name() string { return "time" }

func (timeType) ToTyped(v any) any {
	t, ok := parseTime(v)
	if !ok {
		return nil
	}
	return t.UTC().Truncate(time.Millisecond)
}

func (t timeType) ToDocument(v any) any { return t.ToTyped(v) }

type dateType struct{}

func (dateType) Name() string { return "date" }

func (dateType) ToTyped(v any) any {
	t, ok := parseTime(v)
	if !ok {
		return nil
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (t dateType) ToDocument(v any) any { return t.ToTyped(v) }

func parseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if i, ok := toInt64(v); ok {
		return time.Unix(i, 0), true
	}
	if f, ok := toFloat64(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)), true
	}
	return time.Time{}, false
}

type binaryType struct{}

func (binaryType) Name() string { return "binary" }

func (binaryType) ToTyped(v any) any {
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		return []byte(val)
	default:
		return nil
	}
}

func (t binaryType) ToDocument(v any) any { return t.ToTyped(v) }

// numericString extracts a trimmed, non-empty string from string-like input
func numericString(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	case fmt.Stringer:
		s = val.String()
	default:
		return "", false
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	return s, s != ""
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
