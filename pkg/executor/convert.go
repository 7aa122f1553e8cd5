package executor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// customTypes maps a lowercase Go type name to its accepted spellings
// (lowercase constant name or value) and the value each resolves to.
type customTypes map[string]map[string]string

func (c customTypes) register(name string, values map[string]string) {
	lookup := make(map[string]string, len(values)*2)
	for k, v := range values {
		lookup[strings.ToLower(k)] = v
		lookup[strings.ToLower(v)] = v
	}
	c[strings.ToLower(name)] = lookup
}

// resolve maps arg through the custom type registered for t, if any.
func (c customTypes) resolve(arg string, t reflect.Type) (string, error) {
	if t.Name() == "" || t.PkgPath() == "" {
		return arg, nil
	}
	values, ok := c[strings.ToLower(t.Name())]
	if !ok {
		return arg, nil
	}
	v, ok := values[strings.ToLower(arg)]
	if !ok {
		return "", fmt.Errorf("%q is not a valid %s", arg, t.Name())
	}
	return v, nil
}

// convertArg converts a captured string to the parameter type, including
// named types such as `type Priority int`.
func convertArg(arg string, targetType reflect.Type, types customTypes) (reflect.Value, error) {
	arg, err := types.resolve(arg, targetType)
	if err != nil {
		return reflect.Value{}, err
	}

	var v reflect.Value
	switch targetType.Kind() {
	case reflect.String:
		v = reflect.ValueOf(arg)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(arg, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v = reflect.ValueOf(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(arg, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v = reflect.ValueOf(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(arg, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v = reflect.ValueOf(f)

	case reflect.Bool:
		b, err := parseBool(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		v = reflect.ValueOf(b)

	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type: %s", targetType)
	}

	return v.Convert(targetType), nil
}

// parseBool accepts strconv.ParseBool spellings plus yes/no, on/off and
// enabled/disabled.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on", "enabled":
		return true, nil
	case "no", "off", "disabled":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func isConvertible(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
