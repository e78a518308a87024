package store

import (
	"testing"

	"artiscan/internal/artifact"
)

func rec(level int) artifact.Record {
	return artifact.Record{
		Title:    "The Mark of Stone",
		SetName:  "Archaic Petra",
		Slot:     artifact.SlotSands,
		Rarity:   5,
		Level:    level,
		MainStat: artifact.StatValue{Kind: artifact.StatATKPct, Value: 46.6},
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append(rec(i))
	}
	snap := s.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d", len(snap))
	}
	for i, r := range snap {
		if r.Level != i {
			t.Fatalf("snapshot[%d].Level = %d", i, r.Level)
		}
	}
}

func TestSnapshotIsStable(t *testing.T) {
	s := New()
	s.Append(rec(0))
	snap := s.Snapshot()
	s.Append(rec(1))
	if len(snap) != 1 {
		t.Fatal("snapshot observed later appends")
	}
	if last, ok := s.Last(); !ok || last.Level != 1 {
		t.Fatalf("Last = %v,%v", last, ok)
	}
}
