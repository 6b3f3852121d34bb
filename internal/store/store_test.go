package store

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

func TestNewSentinels(t *testing.T) {
	s := New()
	snap := s.Snapshot()

	if snap.MAF != -1 {
		t.Errorf("Expected MAF sentinel -1, got %v", snap.MAF)
	}
	if snap.FuelRate != -1 {
		t.Errorf("Expected fuel rate sentinel -1, got %v", snap.FuelRate)
	}
	for p := types.Parameter(0); p < types.ParamCount; p++ {
		if snap.Seen[p] {
			t.Errorf("Expected %v unseen before first decode", p)
		}
	}
}

func TestApplyOverwritesSlot(t *testing.T) {
	s := New()
	t1 := time.Now()
	s.Apply(types.Reading{Param: types.ParamRPM, Value: 1726, Stamp: t1})

	snap := s.Snapshot()
	if snap.RPM != 1726 {
		t.Errorf("Expected rpm 1726, got %v", snap.RPM)
	}
	if !snap.Seen[types.ParamRPM] {
		t.Error("Expected rpm marked seen")
	}
	if !snap.Stamps[types.ParamRPM].Equal(t1) {
		t.Error("Expected reading timestamp recorded")
	}

	t2 := t1.Add(time.Second)
	s.Apply(types.Reading{Param: types.ParamRPM, Value: 900, Stamp: t2})
	snap = s.Snapshot()
	if snap.RPM != 900 {
		t.Errorf("Expected newer reading to win, got %v", snap.RPM)
	}
}

func TestApplyOutOfRangeIgnored(t *testing.T) {
	s := New()
	before := s.Snapshot()
	s.Apply(types.Reading{Param: types.ParamCount, Value: 1})
	s.Apply(types.Reading{Param: -1, Value: 1})
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("Out-of-range parameter must not mutate the store")
	}
}

func TestApplyDTCsReplacesSet(t *testing.T) {
	s := New()
	s.ApplyDTCs([]string{"0171", "0203"})
	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.DTCs, []string{"0171", "0203"}) {
		t.Errorf("Expected [0171 0203], got %v", snap.DTCs)
	}

	s.ApplyDTCs([]string{})
	if len(s.Snapshot().DTCs) != 0 {
		t.Error("Expected empty report to clear the set")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	s.ApplyDTCs([]string{"0171"})
	snap := s.Snapshot()
	snap.DTCs[0] = "FFFF"
	if s.Snapshot().DTCs[0] != "0171" {
		t.Error("Mutating a snapshot must not affect the store")
	}
}

func TestConcurrentApplyAndSnapshot(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Apply(types.Reading{Param: types.ParamSpeed, Value: float64(i), Stamp: time.Now()})
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				snap := s.Snapshot()
				if snap.Speed < 0 || snap.Speed >= 1000 {
					t.Errorf("Torn read: speed %v", snap.Speed)
					return
				}
			}
		}
	}()

	wg.Wait()
}
