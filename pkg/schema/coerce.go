package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Coerce converts a value to the named primitive type the way a YAML author
// expects: strings parse to numbers, numbers render to strings, whole floats
// pass as ints, and booleans use a tolerant reading where "true", "yes",
// "on" and "1" (any case) are true and every other string is false.
//
// context names the value in error messages ("input 'level'", "path
// 'variables.hp'"); pass "" when there is nothing to name.
func Coerce(value any, typeStr, context string) (any, error) {
	fail := func(reason string) error {
		if context == "" {
			return fmt.Errorf("Cannot convert value '%v' to type '%s': %s", value, typeStr, reason)
		}
		return fmt.Errorf("Cannot convert %s value '%v' to type '%s': %s", context, value, typeStr, reason)
	}

	switch typeStr {
	case "str":
		return coerceStr(value), nil

	case "int":
		n, err := coerceInt(value)
		if err != nil {
			return nil, fail(err.Error())
		}
		return n, nil

	case "float":
		f, err := coerceFloat(value)
		if err != nil {
			return nil, fail(err.Error())
		}
		return f, nil

	case "bool":
		b, err := coerceBool(value)
		if err != nil {
			return nil, fail(err.Error())
		}
		return b, nil

	default:
		return nil, fmt.Errorf("Unsupported primitive type: %s", typeStr)
	}
}

func coerceStr(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return wholeToInt(float64(v))
	case float64:
		return wholeToInt(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("not an integer")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported source type %T", value)
	}
}

func wholeToInt(f float64) (int, error) {
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(f), nil
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported source type %T", value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "on":
			return true, nil
		default:
			return false, nil
		}
	default:
		f, err := coerceFloat(value)
		if err != nil {
			return false, fmt.Errorf("unsupported source type %T", value)
		}
		return f != 0, nil
	}
}
