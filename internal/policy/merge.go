// Package policy reconciles partial policy snapshots that describe the same
// employee and period.
//
// Snapshots arrive from several documents (a policy sheet, a roster, a
// canonical export) and are stored independently. They are folded together
// in arrival order whenever they are read for calculation or display.
package policy

import (
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/names"
	"github.com/shopspring/decimal"
)

// Merge folds incoming into existing and returns the result. A nil existing
// returns incoming unchanged. Neither argument is modified.
//
// Numeric fields and text fields keep the existing value when it is set. Map
// fields are deep-merged with incoming taking precedence. The mode switches
// to incoming's only when existing's mode lacks its defining field.
func Merge(existing *model.PolicySnapshot, incoming model.PolicySnapshot) model.PolicySnapshot {
	if existing == nil {
		return incoming
	}
	merged := *existing

	for _, f := range []struct {
		dst *decimal.NullDecimal
		src decimal.NullDecimal
	}{
		{&merged.BaseAmount, incoming.BaseAmount},
		{&merged.BaseRate, incoming.BaseRate},
		{&merged.OTWeekdayMultiplier, incoming.OTWeekdayMultiplier},
		{&merged.OTWeekendMultiplier, incoming.OTWeekendMultiplier},
		{&merged.OTWeekdayRate, incoming.OTWeekdayRate},
		{&merged.OTWeekendRate, incoming.OTWeekendRate},
	} {
		if !f.dst.Valid && f.src.Valid {
			*f.dst = f.src
		}
	}

	merged.Allowances = MergeTree(merged.Allowances, incoming.Allowances)
	merged.Deductions = MergeTree(merged.Deductions, incoming.Deductions)
	merged.Tax = MergeTree(merged.Tax, incoming.Tax)
	merged.SocialSecurity = MergeTree(merged.SocialSecurity, incoming.SocialSecurity)

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&merged.ValidFrom, incoming.ValidFrom},
		{&merged.ValidTo, incoming.ValidTo},
		{&merged.SourceSheet, incoming.SourceSheet},
		{&merged.SourceRowRange, incoming.SourceRowRange},
		{&merged.SnapshotHash, incoming.SnapshotHash},
		{&merged.SourceFile, incoming.SourceFile},
	} {
		if *f.dst == "" && f.src != "" {
			*f.dst = f.src
		}
	}

	// Numeric fields are already merged, so a base_amount supplied by
	// incoming keeps a salaried snapshot salaried.
	if merged.Mode != incoming.Mode {
		switch {
		case merged.Mode == model.ModeSalaried && !merged.BaseAmount.Valid:
			merged.Mode = incoming.Mode
		case merged.Mode == model.ModeHourly && !merged.BaseRate.Valid && incoming.BaseAmount.Valid:
			merged.Mode = incoming.Mode
		}
	}

	if merged.RawSnapshot.IsEmpty() && !incoming.RawSnapshot.IsEmpty() {
		merged.RawSnapshot = incoming.RawSnapshot
	}
	return merged
}

// MergeTree deep-merges two map trees. Incoming keys overwrite existing keys
// at the same level, map-against-map conflicts recurse, and a non-map value
// on either side is replaced. A non-map incoming leaves existing as is.
func MergeTree(existing, incoming model.Tree) model.Tree {
	if !incoming.IsMap() {
		return existing
	}
	if !existing.IsMap() {
		return incoming
	}
	entries := existing.Entries()
	for key, value := range incoming.Entries() {
		if current, ok := entries[key]; ok && current.IsMap() && value.IsMap() {
			entries[key] = MergeTree(current, value)
			continue
		}
		entries[key] = value
	}
	return model.Map(entries)
}

// Key is the merge identity of a snapshot. The employee name is normalized
// again so that hand-edited canonical exports still join.
func Key(p model.PolicySnapshot) model.PolicyKey {
	return model.PolicyKey{
		EmployeeNameNorm: names.Normalize(p.EmployeeNameNorm),
		PeriodMonth:      p.PeriodMonth,
	}
}

// MergeAll folds snapshots per key in arrival order. The result holds one
// snapshot per key, ordered by each key's first appearance.
func MergeAll(snapshots []model.PolicySnapshot) []model.PolicySnapshot {
	var order []model.PolicyKey
	merged := make(map[model.PolicyKey]*model.PolicySnapshot)
	for _, s := range snapshots {
		key := Key(s)
		current, ok := merged[key]
		if !ok {
			order = append(order, key)
		}
		next := Merge(current, s)
		merged[key] = &next
	}

	out := make([]model.PolicySnapshot, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}

// ByEmployee folds the snapshots of one period and indexes them by
// normalized employee name.
func ByEmployee(snapshots []model.PolicySnapshot, period string) map[string]model.PolicySnapshot {
	out := make(map[string]model.PolicySnapshot)
	for _, s := range MergeAll(snapshots) {
		if s.PeriodMonth != period {
			continue
		}
		out[names.Normalize(s.EmployeeNameNorm)] = s
	}
	return out
}
