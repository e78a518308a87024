// Package parse turns decoded field text into typed record values. All
// functions are pure: the same input always parses the same way, and
// anything outside the closed vocabularies fails loudly instead of being
// coerced to the nearest known value.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"artiscan/internal/artifact"
)

// MalformedFieldError reports raw text that does not parse as its field.
type MalformedFieldError struct {
	Field string
	Raw   string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %s: %q", e.Field, e.Raw)
}

func malformed(field, raw string) error {
	return &MalformedFieldError{Field: field, Raw: raw}
}

// statNames maps the on-screen stat label to its flat and percent kinds.
// An empty kind means that variant does not exist for the label.
var statNames = map[string]struct{ flat, pct artifact.Stat }{
	"HP":                 {artifact.StatHP, artifact.StatHPPct},
	"ATK":                {artifact.StatATK, artifact.StatATKPct},
	"DEF":                {artifact.StatDEF, artifact.StatDEFPct},
	"Elemental Mastery":  {artifact.StatEM, ""},
	"Energy Recharge":    {"", artifact.StatER},
	"CRIT Rate":          {"", artifact.StatCritRate},
	"CRIT DMG":           {"", artifact.StatCritDMG},
	"Healing Bonus":      {"", artifact.StatHealing},
	"Pyro DMG Bonus":     {"", artifact.StatPyroDMG},
	"Hydro DMG Bonus":    {"", artifact.StatHydroDMG},
	"Electro DMG Bonus":  {"", artifact.StatElectroDMG},
	"Cryo DMG Bonus":     {"", artifact.StatCryoDMG},
	"Anemo DMG Bonus":    {"", artifact.StatAnemoDMG},
	"Geo DMG Bonus":      {"", artifact.StatGeoDMG},
	"Dendro DMG Bonus":   {"", artifact.StatDendroDMG},
	"Physical DMG Bonus": {"", artifact.StatPhysDMG},
}

// slotNames maps the slot line shown under the title to the slot kind.
var slotNames = map[string]artifact.Slot{
	"Flower of Life":     artifact.SlotFlower,
	"Plume of Death":     artifact.SlotPlume,
	"Sands of Eon":       artifact.SlotSands,
	"Goblet of Eonothem": artifact.SlotGoblet,
	"Circlet of Logos":   artifact.SlotCirclet,
}

// Number parses a numeric field. Thousands separators are dropped, one
// decimal point is allowed, and a trailing % marks a percentage value.
func Number(field, raw string) (value float64, percent bool, err error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, false, malformed(field, raw)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false, malformed(field, raw)
		}
	}
	value, convErr := strconv.ParseFloat(s, 64)
	if convErr != nil {
		return 0, false, malformed(field, raw)
	}
	return value, percent, nil
}

// Level parses the enhancement line "+N" with N in 0..20.
func Level(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 20 {
		return 0, malformed("level", raw)
	}
	return n, nil
}

// Slot matches the slot line against the closed slot vocabulary.
func Slot(raw string) (artifact.Slot, error) {
	if s, ok := slotNames[strings.TrimSpace(raw)]; ok {
		return s, nil
	}
	return "", malformed("slot", raw)
}

// StatKind resolves a stat label plus percent flag to a stat kind.
func StatKind(field, name string, percent bool) (artifact.Stat, error) {
	entry, ok := statNames[strings.TrimSpace(name)]
	if !ok {
		return "", malformed(field, name)
	}
	kind := entry.flat
	if percent {
		kind = entry.pct
	}
	if kind == "" {
		return "", malformed(field, name)
	}
	return kind, nil
}

// StatLine parses a combined substat line of the form "CRIT Rate+3.9%".
func StatLine(field, raw string) (artifact.StatValue, error) {
	name, num, ok := strings.Cut(strings.TrimSpace(raw), "+")
	if !ok {
		return artifact.StatValue{}, malformed(field, raw)
	}
	value, percent, err := Number(field, num)
	if err != nil {
		return artifact.StatValue{}, err
	}
	kind, err := StatKind(field, name, percent)
	if err != nil {
		return artifact.StatValue{}, err
	}
	return artifact.StatValue{Kind: kind, Value: value}, nil
}

// MainStat parses the separately rendered main stat name and value fields.
func MainStat(name, value string) (artifact.StatValue, error) {
	v, percent, err := Number("main_stat_value", value)
	if err != nil {
		return artifact.StatValue{}, err
	}
	kind, err := StatKind("main_stat_name", name, percent)
	if err != nil {
		return artifact.StatValue{}, err
	}
	return artifact.StatValue{Kind: kind, Value: v}, nil
}

// Counter parses the inventory counter "1250/1500" and returns the held
// count. The capacity is not used for termination, only the held count.
func Counter(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	// Some layouts prefix the counter with a label.
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		s = s[i+1:]
	}
	held, _, ok := strings.Cut(s, "/")
	if !ok {
		return 0, malformed("counter", raw)
	}
	n, err := strconv.Atoi(held)
	if err != nil || n < 0 {
		return 0, malformed("counter", raw)
	}
	return n, nil
}

// SetName trims the set line. Set names are free text (the game adds new
// sets every version), but an empty line still fails the field.
func SetName(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", malformed("set_name", raw)
	}
	return s, nil
}

// EquippedBy strips the "Equipped:" label from the equip line. An empty
// result means the artifact is not equipped.
func EquippedBy(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "Equipped:")
	return strings.TrimSpace(s)
}
