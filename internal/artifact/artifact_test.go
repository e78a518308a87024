package artifact

import "testing"

func validRecord() Record {
	return Record{
		Title:    "Gladiator's Nostalgia",
		SetName:  "Gladiator's Finale",
		Slot:     SlotFlower,
		Rarity:   5,
		Level:    20,
		MainStat: StatValue{Kind: StatHP, Value: 4780},
		SubStats: []StatValue{
			{Kind: StatCritRate, Value: 3.9},
			{Kind: StatCritDMG, Value: 14.8},
			{Kind: StatATKPct, Value: 9.9},
			{Kind: StatEM, Value: 23},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	r := validRecord()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
}

func TestRarityBoundsLevel(t *testing.T) {
	r := validRecord()
	r.Rarity = 3
	r.Level = 15
	if err := r.Validate(); err == nil {
		t.Fatal("rarity 3 with level 15 must be rejected")
	}
	r.Level = 12
	if err := r.Validate(); err != nil {
		t.Fatalf("rarity 3 with level 12 must be accepted: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Record)
	}{
		{"empty title", func(r *Record) { r.Title = "" }},
		{"empty set", func(r *Record) { r.SetName = "" }},
		{"bad slot", func(r *Record) { r.Slot = "helmet" }},
		{"rarity 0", func(r *Record) { r.Rarity = 0 }},
		{"rarity 6", func(r *Record) { r.Rarity = 6 }},
		{"negative level", func(r *Record) { r.Level = -1 }},
		{"five substats", func(r *Record) {
			r.SubStats = append(r.SubStats, StatValue{Kind: StatDEF, Value: 19})
		}},
		{"duplicate substat", func(r *Record) {
			r.SubStats[1] = r.SubStats[0]
		}},
		{"substat repeats main", func(r *Record) {
			r.SubStats[0] = StatValue{Kind: StatHP, Value: 209}
		}},
	}
	for _, tc := range cases {
		r := validRecord()
		tc.mutate(&r)
		if err := r.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestFingerprintIgnoresSubstatOrder(t *testing.T) {
	a := validRecord()
	b := validRecord()
	b.SubStats = []StatValue{b.SubStats[3], b.SubStats[2], b.SubStats[1], b.SubStats[0]}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprint must not depend on substat order")
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := validRecord()
	b := validRecord()
	b.Level = 16
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different levels must produce different fingerprints")
	}
}
