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

package idgen

import (
	"errors"
	"os"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlakeGenerator_NextID(t *testing.T) {
	gen, err := newFlakeGenerator(func() (uint16, error) { return 42, nil })
	require.NoError(t, err)

	id := gen.NextID()
	id2 := gen.NextID()
	assert.Positive(t, id)
	assert.Greater(t, id2, id, "NextID() did not return increasing id")
}

func TestFlakeGenerator_FallsBackToHostname(t *testing.T) {
	noAddress := func() (uint16, error) { return 0, errors.New("no private ip address") }

	gen, err := newFlakeGenerator(noAddress)
	require.NoError(t, err)
	assert.Positive(t, gen.NextID())
}

func TestHostMachineID(t *testing.T) {
	id, err := hostMachineID()
	require.NoError(t, err)

	if name, err := os.Hostname(); err == nil && name != "" {
		assert.Equal(t, uint16(xxhash.Sum64String(name)), id)
	}
}

func TestFlakeGenerator_ZeroValue(t *testing.T) {
	assert.GreaterOrEqual(t, (&FlakeGenerator{}).NextID(), int64(0), "random fallback")
}

func TestInstanceID(t *testing.T) {
	assert.Positive(t, InstanceID())
	assert.NotEqual(t, InstanceID(), InstanceID())
}
