package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// settings is viper's merged view of the config file and environment.
type settings map[string]any

// lookup returns the value of the first key present, trying each key as
// written and lowercased (viper folds keys to lowercase).
func (s settings) lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := s[key]; ok {
			return v, true
		}
		if v, ok := s[strings.ToLower(key)]; ok {
			return v, true
		}
	}
	return nil, false
}

// apply converts the first present key with conv and passes the result to
// set. Missing keys are not an error.
func apply[T any](s settings, conv func(any) (T, error), set func(T), keys ...string) error {
	raw, ok := s.lookup(keys...)
	if !ok {
		return nil
	}
	v, err := conv(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", keys[0], err)
	}
	set(v)
	return nil
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

// toInt accepts any numeric kind or a decimal string. Empty strings are 0.
func toInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return int(rv.Int()), nil
	case rv.CanUint():
		return int(rv.Uint()), nil
	case rv.CanFloat():
		return int(rv.Float()), nil
	}
	return 0, fmt.Errorf("not a number: %T", value)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("not a number: %T", value)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("not a boolean: %T", value)
}

// toStrings accepts a list from a config file or a comma separated
// string from the environment.
func toStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list: %T", value)
}
