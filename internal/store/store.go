// Package store owns the latest decoded vehicle values. It is the
// single source of truth read by the UI, web and metrics consumers;
// only decode results mutate it.
package store

import (
	"sync"
	"time"

	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// Store holds the most recent value per parameter plus the active
// trouble-code set. Readers always get a consistent copy; a snapshot
// never observes one field updated mid-apply of another.
type Store struct {
	mu     sync.RWMutex
	values [types.ParamCount]float64
	stamps [types.ParamCount]time.Time
	seen   [types.ParamCount]bool
	dtcs   []string
}

// New returns a store with every parameter at its unknown sentinel:
// MAF and fuel rate at -1, the rest at zero with Seen unset.
func New() *Store {
	s := &Store{}
	s.values[types.ParamMAF] = -1
	s.values[types.ParamFuelRate] = -1
	return s
}

// Apply overwrites the slot for the reading's parameter. Later
// readings win regardless of arrival order; there is no request
// correlation on the wire.
func (s *Store) Apply(r types.Reading) {
	if r.Param < 0 || r.Param >= types.ParamCount {
		return
	}
	s.mu.Lock()
	s.values[r.Param] = r.Value
	s.stamps[r.Param] = r.Stamp
	s.seen[r.Param] = true
	s.mu.Unlock()
}

// ApplyDTCs replaces the trouble-code set atomically.
func (s *Store) ApplyDTCs(codes []string) {
	dup := make([]string, len(codes))
	copy(dup, codes)
	s.mu.Lock()
	s.dtcs = dup
	s.mu.Unlock()
}

// Snapshot returns a read-only copy of the current vehicle state.
func (s *Store) Snapshot() types.VehicleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := types.VehicleState{
		RPM:         s.values[types.ParamRPM],
		Speed:       s.values[types.ParamSpeed],
		CoolantTemp: s.values[types.ParamCoolantTemp],
		MAF:         s.values[types.ParamMAF],
		FuelRate:    s.values[types.ParamFuelRate],
		Seen:        s.seen,
		Stamps:      s.stamps,
	}
	snap.DTCs = make([]string, len(s.dtcs))
	copy(snap.DTCs, s.dtcs)
	return snap
}
