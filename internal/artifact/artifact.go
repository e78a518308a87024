package artifact

import (
	"fmt"
	"sort"
	"strings"
)

// Slot identifies the equipment piece a record describes.
type Slot string

const (
	SlotFlower  Slot = "flower"
	SlotPlume   Slot = "plume"
	SlotSands   Slot = "sands"
	SlotGoblet  Slot = "goblet"
	SlotCirclet Slot = "circlet"
)

// Slots lists every valid slot in display order.
var Slots = []Slot{SlotFlower, SlotPlume, SlotSands, SlotGoblet, SlotCirclet}

// Stat identifies one entry of the closed stat vocabulary. Percent stats
// are distinct kinds from their flat counterparts.
type Stat string

const (
	StatHP         Stat = "hp"
	StatHPPct      Stat = "hp_"
	StatATK        Stat = "atk"
	StatATKPct     Stat = "atk_"
	StatDEF        Stat = "def"
	StatDEFPct     Stat = "def_"
	StatEM         Stat = "em"
	StatER         Stat = "er_"
	StatCritRate   Stat = "cr_"
	StatCritDMG    Stat = "cd_"
	StatHealing    Stat = "heal_"
	StatPyroDMG    Stat = "pyro_"
	StatHydroDMG   Stat = "hydro_"
	StatElectroDMG Stat = "electro_"
	StatCryoDMG    Stat = "cryo_"
	StatAnemoDMG   Stat = "anemo_"
	StatGeoDMG     Stat = "geo_"
	StatDendroDMG  Stat = "dendro_"
	StatPhysDMG    Stat = "phys_"
)

// Percent reports whether the stat renders with a % suffix.
func (s Stat) Percent() bool { return strings.HasSuffix(string(s), "_") }

// StatValue pairs a stat kind with its numeric value. For percent kinds
// the value is the rendered percentage, not a ratio (46.6, not 0.466).
type StatValue struct {
	Kind  Stat
	Value float64
}

func (v StatValue) String() string {
	if v.Kind.Percent() {
		return fmt.Sprintf("%s+%.1f%%", v.Kind, v.Value)
	}
	return fmt.Sprintf("%s+%.0f", v.Kind, v.Value)
}

// Record is one scanned artifact. Immutable once built and validated.
// Title is the rendered piece name; it is determined by set and slot, so
// it carries no identity of its own and stays out of the fingerprint.
type Record struct {
	Title      string
	SetName    string
	Slot       Slot
	Rarity     int
	Level      int
	MainStat   StatValue
	SubStats   []StatValue
	Locked     bool
	EquippedBy string
}

// MaxLevel returns the enhancement cap for a rarity.
func MaxLevel(rarity int) int { return rarity * 4 }

// Validate checks the cross-field invariants: rarity in 1..5, level within
// the rarity's cap, at most four substats and no repeated substat kind.
func (r *Record) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("artifact: empty title")
	}
	if r.SetName == "" {
		return fmt.Errorf("artifact: empty set name")
	}
	valid := false
	for _, s := range Slots {
		if r.Slot == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("artifact: unknown slot %q", r.Slot)
	}
	if r.Rarity < 1 || r.Rarity > 5 {
		return fmt.Errorf("artifact: rarity %d out of range", r.Rarity)
	}
	if r.Level < 0 || r.Level > MaxLevel(r.Rarity) {
		return fmt.Errorf("artifact: level %d invalid for rarity %d (max %d)", r.Level, r.Rarity, MaxLevel(r.Rarity))
	}
	if len(r.SubStats) > 4 {
		return fmt.Errorf("artifact: %d substats, at most 4 allowed", len(r.SubStats))
	}
	seen := make(map[Stat]bool, len(r.SubStats))
	for _, sub := range r.SubStats {
		if seen[sub.Kind] {
			return fmt.Errorf("artifact: duplicate substat %s", sub.Kind)
		}
		if sub.Kind == r.MainStat.Kind {
			return fmt.Errorf("artifact: substat %s repeats main stat", sub.Kind)
		}
		seen[sub.Kind] = true
	}
	return nil
}

// Fingerprint derives the content identity used for duplicate detection.
// Substats are sorted so their on-screen order does not matter. The game
// exposes no stable item ID, so this is the only identity available.
func (r *Record) Fingerprint() string {
	subs := make([]string, len(r.SubStats))
	for i, s := range r.SubStats {
		subs[i] = s.String()
	}
	sort.Strings(subs)
	return fmt.Sprintf("%s|%s|%d|%d|%s|%s",
		r.SetName, r.Slot, r.Rarity, r.Level, r.MainStat, strings.Join(subs, ","))
}
