package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/names"
	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/shopspring/decimal"
)

// record is one canonical row keyed by lower-cased column name.
type record map[string]model.Tree

func newRecord(t model.Tree) record {
	r := make(record, t.Len())
	for k, v := range t.Entries() {
		r[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return r
}

func (r record) text(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s := strings.TrimSpace(v.Text()); s != "" {
				return s
			}
		}
	}
	return ""
}

func (r record) decimal(key string) (decimal.Decimal, bool) {
	v, ok := r[key]
	if !ok {
		return decimal.Zero, false
	}
	if d, ok := v.Decimal(); ok && v.Kind() == model.KindNumber {
		return d, true
	}
	return tabular.ParseDecimal(v.Text())
}

func (r record) nullDecimal(key string) decimal.NullDecimal {
	d, ok := r.decimal(key)
	if !ok {
		return decimal.NullDecimal{}
	}
	return model.NewNullDecimal(d)
}

// tree reads a JSON map field. CSV cells may hold JSON or a Python-style
// literal such as {'employee': 0.08}.
func (r record) tree(key string) (model.Tree, error) {
	v, ok := r[key]
	if !ok || v.IsNull() {
		return model.Tree{}, nil
	}
	if v.Kind() != model.KindString {
		return v, nil
	}
	text := strings.TrimSpace(v.Text())
	if text == "" {
		return model.Tree{}, nil
	}
	t, err := model.ParseTree(text)
	if err == nil {
		return t, nil
	}
	t, pyErr := model.ParseTree(pythonLiteral.Replace(text))
	if pyErr != nil {
		return model.Tree{}, fmt.Errorf("%w: %s: %w", ErrParse, key, err)
	}
	return t, nil
}

var pythonLiteral = strings.NewReplacer("'", `"`, "True", "true", "False", "false", "None", "null")

// Canonical loads a fact_table or policy_table export. CSV files must carry a
// metric_code or mode column; JSON payloads hold {"records": [...],
// "policy": [...]}. There is no heuristic fallback: the first bad row fails
// the whole load.
func Canonical(path string, opts Options) (Output, error) {
	if tabular.IsCSV(path) {
		book, err := tabular.Open(path)
		if err != nil {
			return Output{}, fmt.Errorf("%w: %w", ErrParse, err)
		}
		return CanonicalSheet(book.Sheets[0], opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Output{}, fmt.Errorf("failed to read payload: %w", err)
	}
	return CanonicalJSON(data, opts)
}

// CanonicalSheet loads canonical records from a tabular sheet whose first
// row is the header.
func CanonicalSheet(sheet tabular.Sheet, opts Options) (Output, error) {
	frame := sheet.Frame(0)
	var factTable, policyTable bool
	for _, h := range frame.Header {
		switch strings.ToLower(h) {
		case "metric_code":
			factTable = true
		case "mode":
			policyTable = true
		}
	}
	if !factTable && !policyTable {
		return Output{}, fmt.Errorf("%w: csv must contain metric_code or mode column", ErrMissingColumn)
	}

	out := Output{}
	for _, row := range frame.Rows {
		rec := newRecord(frame.Record(row))
		if factTable {
			fact, err := factFromRecord(rec, opts)
			if err != nil {
				return out, fmt.Errorf("row %d: %w", row.Number, err)
			}
			if fact.SourceSheet == "" {
				fact.SourceSheet = sheet.Name
			}
			if fact.SourceRow == 0 {
				fact.SourceRow = row.Number
			}
			out.Facts = append(out.Facts, fact)
			continue
		}
		snapshot, err := policyFromRecord(rec, opts)
		if err != nil {
			return out, fmt.Errorf("row %d: %w", row.Number, err)
		}
		if snapshot.SourceRowRange == "" {
			snapshot.SourceRowRange = strconv.Itoa(row.Number)
		}
		out.Policies = append(out.Policies, snapshot)
	}
	return out, nil
}

// CanonicalJSON loads a {"records": [...], "policy": [...]} payload.
func CanonicalJSON(data []byte, opts Options) (Output, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload struct {
		Records []map[string]any `json:"records"`
		Policy  []map[string]any `json:"policy"`
	}
	if err := dec.Decode(&payload); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if payload.Records == nil && payload.Policy == nil {
		return Output{}, fmt.Errorf("%w: payload must contain records or policy", ErrMissingColumn)
	}

	out := Output{}
	for i, raw := range payload.Records {
		t, err := model.FromAny(raw)
		if err != nil {
			return out, fmt.Errorf("%w: records[%d]: %w", ErrParse, i, err)
		}
		fact, err := factFromRecord(newRecord(t), opts)
		if err != nil {
			return out, fmt.Errorf("records[%d]: %w", i, err)
		}
		out.Facts = append(out.Facts, fact)
	}
	for i, raw := range payload.Policy {
		t, err := model.FromAny(raw)
		if err != nil {
			return out, fmt.Errorf("%w: policy[%d]: %w", ErrParse, i, err)
		}
		snapshot, err := policyFromRecord(newRecord(t), opts)
		if err != nil {
			return out, fmt.Errorf("policy[%d]: %w", i, err)
		}
		out.Policies = append(out.Policies, snapshot)
	}
	return out, nil
}

func factFromRecord(rec record, opts Options) (model.FactRecord, error) {
	employee := rec.text("employee_name", "employee_name_norm")
	if employee == "" {
		return model.FactRecord{}, fmt.Errorf("%w: missing employee_name", model.ErrValidation)
	}
	code, err := model.ParseMetricCode(rec.text("metric_code"))
	if err != nil {
		return model.FactRecord{}, err
	}
	value, ok := rec.decimal("metric_value")
	if !ok {
		return model.FactRecord{}, fmt.Errorf("%w: metric_value %q is not a number", model.ErrValidation, rec.text("metric_value"))
	}
	period := rec.text("period_month")
	if period == "" {
		period = opts.period()
	}

	confidence := ConfidenceCanonical
	if c, ok := rec.decimal("confidence"); ok {
		confidence = c
	}
	fact := newFact(opts, employee, period, code, value, rec.text("metric_label"), confidence)
	if norm := rec.text("employee_name_norm"); norm != "" {
		fact.EmployeeNameNorm = names.Normalize(norm)
	}
	if u := rec.text("unit"); u != "" {
		if fact.Unit, err = model.ParseUnit(u); err != nil {
			return model.FactRecord{}, err
		}
	}
	if c := rec.text("currency"); c != "" {
		fact.Currency = strings.ToUpper(c)
	}
	fact.SourceSheet = rec.text("source_sheet")
	fact.SourceCol = rec.text("source_col")
	if n, ok := rec.decimal("source_row"); ok {
		fact.SourceRow = int(n.IntPart())
	}
	if fact.Tags, err = rec.tree("tags_json"); err != nil {
		return model.FactRecord{}, err
	}
	return fact, nil
}

func policyFromRecord(rec record, opts Options) (model.PolicySnapshot, error) {
	employee := rec.text("employee_name_norm", "employee_name")
	if employee == "" {
		return model.PolicySnapshot{}, fmt.Errorf("%w: missing employee_name_norm", model.ErrValidation)
	}
	period := rec.text("period_month")
	if period == "" {
		period = opts.period()
	}
	snapshot := newPolicy(opts, employee, period)

	mode, err := model.ParseMode(rec.text("mode"))
	if err != nil {
		return model.PolicySnapshot{}, err
	}
	snapshot.Mode = mode

	snapshot.BaseAmount = rec.nullDecimal("base_amount")
	snapshot.BaseRate = rec.nullDecimal("base_rate")
	snapshot.OTWeekdayMultiplier = rec.nullDecimal("ot_weekday_multiplier")
	snapshot.OTWeekendMultiplier = rec.nullDecimal("ot_weekend_multiplier")
	snapshot.OTWeekdayRate = rec.nullDecimal("ot_weekday_rate")
	snapshot.OTWeekendRate = rec.nullDecimal("ot_weekend_rate")

	for key, dst := range map[string]*model.Tree{
		"allowances_json":      &snapshot.Allowances,
		"deductions_json":      &snapshot.Deductions,
		"tax_json":             &snapshot.Tax,
		"social_security_json": &snapshot.SocialSecurity,
		"raw_snapshot":         &snapshot.RawSnapshot,
	} {
		t, err := rec.tree(key)
		if err != nil {
			return model.PolicySnapshot{}, err
		}
		*dst = t
	}

	snapshot.ValidFrom = rec.text("valid_from")
	snapshot.ValidTo = rec.text("valid_to")
	snapshot.SourceFile = rec.text("source_file")
	snapshot.SourceSheet = rec.text("source_sheet")
	snapshot.SourceRowRange = rec.text("source_row_range")
	snapshot.SnapshotHash = rec.text("snapshot_hash")
	if snapshot.SnapshotHash == "" {
		snapshot.SnapshotHash = snapshot.ComputeHash()
	}
	return snapshot, nil
}
