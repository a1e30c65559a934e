// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBoolEnv(t *testing.T) {
	const testEnvVar = "FEEDFILTER_TEST_BOOL_ENV_VAR"

	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"true lowercase", "true", false, true},
		{"true uppercase", "TRUE", false, true},
		{"1", "1", false, true},
		{"yes", "yes", false, true},
		{"on", "ON", false, true},
		{"enabled", "Enabled", false, true},
		{"false lowercase", "false", true, false},
		{"0", "0", true, false},
		{"no", "NO", true, false},
		{"off", "off", true, false},
		{"disabled", "disabled", true, false},
		{"padded true", "  true  ", false, true},
		{"padded false", "\tfalse\t", true, false},
		{"empty with default true", "", true, true},
		{"empty with default false", "", false, false},
		{"unknown value", "maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testEnvVar, tt.envValue)
			assert.Equal(t, tt.expected, GetBoolEnv(testEnvVar, tt.defaultValue))
		})
	}
}

func TestAnyEnvSet(t *testing.T) {
	t.Setenv("FEEDFILTER_TEST_A", "")
	t.Setenv("FEEDFILTER_TEST_B", "")
	assert.False(t, AnyEnvSet("FEEDFILTER_TEST_A", "FEEDFILTER_TEST_B"))
	assert.False(t, AnyEnvSet())

	t.Setenv("FEEDFILTER_TEST_B", "1")
	assert.True(t, AnyEnvSet("FEEDFILTER_TEST_A", "FEEDFILTER_TEST_B"))
}
