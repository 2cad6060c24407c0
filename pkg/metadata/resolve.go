/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metadata provides typed lookups over untyped string-keyed property
// maps. It is not specific to power management: any typed per-entity override
// should route through Resolve.
package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

var errNotCoercible = errors.New("value is not coercible to target type")

// Resolve looks up key in props and coerces the raw value to T.
//
// An absent key returns def unchanged. A present value that cannot be coerced
// logs a warning naming the entity, key, raw value, target type and the
// substituted default, then returns def. Resolve never panics and never
// returns an error: coercion failure is always absorbed into the default.
func Resolve[T any](entity string, props map[string]any, key string, def T) T {
	raw, ok := props[key]
	if !ok {
		return def
	}

	v, err := coerce[T](raw)
	if err != nil {
		slog.Warn(
			"metadata value is not coercible, substituting default",
			"entity", entity,
			"key", key,
			"value", raw,
			"targetType", fmt.Sprintf("%T", def),
			"default", def,
		)

		return def
	}

	return v
}

func coerce[T any](raw any) (T, error) { //nolint:ireturn
	var zero T

	// Exact type match needs no coercion.
	if v, ok := raw.(T); ok {
		return v, nil
	}

	var out any
	var err error

	switch any(zero).(type) {
	case int:
		var i int64
		i, err = toInt64(raw)
		out = int(i)
	case int64:
		out, err = toInt64(raw)
	case bool:
		out, err = toBool(raw)
	case string:
		out = fmt.Sprint(raw)
	default:
		err = errNotCoercible
	}

	if err != nil {
		return zero, err
	}

	return out.(T), nil //nolint:forcetypeassert
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		// JSON numbers decode as float64; only whole values are ints.
		if v != float64(int64(v)) {
			return 0, errNotCoercible
		}
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errNotCoercible
		}
		return i, nil
	default:
		return 0, errNotCoercible
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, errNotCoercible
		}
		return b, nil
	default:
		return false, errNotCoercible
	}
}
