//go:build unit

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

package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexandremahdhaoui/virtpower/pkg/metadata"
)

func TestResolveInt(t *testing.T) {
	props := map[string]any{
		"a": 1,
		"b": "2",
		"c": "not-a-number",
	}

	assert.Equal(t, 1, metadata.Resolve("vm0", props, "a", 0))
	assert.Equal(t, 2, metadata.Resolve("vm0", props, "b", 0))
	assert.Equal(t, 0, metadata.Resolve("vm0", props, "c", 0))
	assert.Equal(t, 7, metadata.Resolve("vm0", props, "missing", 7))
}

func TestResolveJSONNumbers(t *testing.T) {
	// JSON decoding yields float64 for every number.
	props := map[string]any{
		"whole":      float64(30),
		"fractional": 1.5,
	}

	assert.Equal(t, 30, metadata.Resolve("vm0", props, "whole", 0))
	assert.Equal(t, 0, metadata.Resolve("vm0", props, "fractional", 0),
		"fractional values must not silently truncate to int")
}

func TestResolveInt64(t *testing.T) {
	props := map[string]any{
		"a": 1,
		"b": "2",
	}

	assert.Equal(t, int64(1), metadata.Resolve("vm0", props, "a", int64(0)))
	assert.Equal(t, int64(2), metadata.Resolve("vm0", props, "b", int64(0)))
}

func TestResolveBool(t *testing.T) {
	props := map[string]any{
		"enabled":  true,
		"disabled": "false",
		"garbage":  "maybe",
	}

	assert.True(t, metadata.Resolve("vm0", props, "enabled", false))
	assert.False(t, metadata.Resolve("vm0", props, "disabled", true))
	assert.True(t, metadata.Resolve("vm0", props, "garbage", true))
}

func TestResolveString(t *testing.T) {
	props := map[string]any{
		"name":  "vm0",
		"count": 3,
	}

	assert.Equal(t, "vm0", metadata.Resolve("e", props, "name", ""))
	assert.Equal(t, "3", metadata.Resolve("e", props, "count", ""))
	assert.Equal(t, "fallback", metadata.Resolve("e", props, "missing", "fallback"))
}

func TestResolveUnsupportedTargetType(t *testing.T) {
	props := map[string]any{
		"a": "1",
	}

	// No coercion path to a struct type: the default is substituted.
	type custom struct{ X int }

	assert.Equal(t, custom{X: 9}, metadata.Resolve("vm0", props, "a", custom{X: 9}))
}
