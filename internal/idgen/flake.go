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
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/sonyflake"
)

var flakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var defaultFlake = sync.OnceValue(func() *FlakeGenerator {
	g, err := newFlakeGenerator(nil)
	if err != nil {
		// only reachable with a broken clock; IDs degrade to random values
		return &FlakeGenerator{}
	}
	return g
})

// InstanceID returns a process-unique ID for log and metric attributes.
// The generator is created on first use.
func InstanceID() int64 {
	return defaultFlake().NextID()
}

type FlakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// newFlakeGenerator builds a generator using machineID, or sonyflake's
// private-IP derived ID when machineID is nil. If that fails, for example on
// a host without a private IPv4 address, the hostname is used instead.
func newFlakeGenerator(machineID func() (uint16, error)) (*FlakeGenerator, error) {
	st := sonyflake.Settings{
		StartTime: flakeEpoch,
		MachineID: machineID,
	}
	sf, err := sonyflake.New(st)
	if err != nil {
		st.MachineID = hostMachineID
		sf, err = sonyflake.New(st)
	}
	if err != nil {
		return nil, err
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return &FlakeGenerator{sf: sf}, nil
}

// hostMachineID derives a machine ID from the hostname, falling back to a
// random value when the hostname is unavailable.
func hostMachineID() (uint16, error) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return uint16(rand.Uint32()), nil
	}
	return uint16(xxhash.Sum64String(name)), nil
}

// NextID returns a positive int64 that increases roughly in time order.
// It falls back to a random value if the generator is unavailable or exhausted.
func (g *FlakeGenerator) NextID() int64 {
	if g.sf == nil {
		return rand.Int64()
	}
	v, err := g.sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}
