package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/payflow/internal/detect"
	"github.com/Veraticus/payflow/internal/extract"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/ocr"
	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnparsedLabel marks the placeholder fact recorded for a spreadsheet
// nothing could be extracted from.
const UnparsedLabel = "unparsed"

// ingestion is everything one upload produced.
type ingestion struct {
	doc      *model.Document
	schema   detect.Schema
	facts    []model.FactRecord
	policies []model.PolicySnapshot
	// heuristicFacts and heuristicPolicies report what the heuristic
	// extractor contributed on top of the template.
	heuristicFacts    bool
	heuristicPolicies bool
}

// credits lists the schemas the upload satisfies for workspace progress.
func (in ingestion) credits() []string {
	schemas := []string{string(in.schema)}
	if in.heuristicFacts {
		schemas = append(schemas, workspace.SchemaHeuristicFact)
	}
	if in.heuristicPolicies {
		schemas = append(schemas, workspace.SchemaHeuristicPolicy)
	}
	return schemas
}

// extract reads the upload and returns its records with provenance filled
// in. It takes no lock.
func (w *Worker) extract(ctx context.Context, job *model.Job, path string) (ingestion, error) {
	digest, err := fileDigest(path)
	if err != nil {
		return ingestion{}, err
	}
	opts := extract.Options{WorkspaceID: job.WorkspaceID}

	var in ingestion
	switch {
	case tabular.IsSpreadsheet(path):
		in = extractSpreadsheet(path, opts)
	case tabular.IsCSV(path):
		in, err = extractCSV(path, opts)
	case strings.EqualFold(filepath.Ext(path), ".json"):
		in, err = extractJSON(path, opts)
	default:
		in, err = w.extractDocument(ctx, job, path)
	}
	if err != nil {
		return in, err
	}

	stamp(&in, job, digest)
	return in, nil
}

// extractSpreadsheet runs the template extractor and then the heuristic
// extractor. Extraction errors are logged and fall through to the unparsed
// placeholder.
func extractSpreadsheet(path string, opts extract.Options) ingestion {
	in := ingestion{schema: detect.SchemaUnknown}

	book, err := tabular.Open(path)
	if err != nil {
		slog.Warn("Failed to open workbook", "file", filepath.Base(path), "error", err)
		in.facts = []model.FactRecord{unparsedFact(opts.WorkspaceID)}
		return in
	}

	detected := detect.Workbook(book)
	in.schema = detected.Schema

	var template extract.Output
	if fn, ok := extract.Lookup(detected.Schema); ok {
		sheetOpts := opts
		sheetOpts.Sheet = detected.Sheet
		template, err = fn(book, sheetOpts)
		if err != nil {
			slog.Warn("Template extraction failed", "file", filepath.Base(path), "schema", detected.Schema, "error", err)
			template = extract.Output{}
		}
	}

	heuristic, err := extract.Heuristic(book, opts)
	if err != nil {
		slog.Debug("Heuristic extraction failed", "file", filepath.Base(path), "error", err)
		heuristic = extract.Output{}
	}

	in.facts = template.Facts
	for i := range heuristic.Facts {
		if capturedByTemplate(template.Facts, heuristic.Facts[i]) {
			continue
		}
		in.facts = append(in.facts, heuristic.Facts[i])
		in.heuristicFacts = true
	}

	in.policies = template.Policies
	if len(template.Policies) == 0 && len(heuristic.Policies) > 0 {
		in.policies = heuristic.Policies
		in.heuristicPolicies = true
	}

	if len(in.facts) == 0 && len(in.policies) == 0 {
		in.facts = []model.FactRecord{unparsedFact(opts.WorkspaceID)}
	}
	return in
}

// capturedByTemplate reports whether the template already recorded fact:
// either the same dedup key, or the same employee and metric read from the
// same sheet column. Heuristic facts never dedup against each other since
// repeated rows accumulate.
func capturedByTemplate(template []model.FactRecord, fact model.FactRecord) bool {
	key := fact.Key()
	for i := range template {
		t := &template[i]
		if t.Key() == key {
			return true
		}
		if t.SourceCol != "" && t.SourceCol == fact.SourceCol && t.SourceSheet == fact.SourceSheet &&
			t.EmployeeNameNorm == fact.EmployeeNameNorm && t.MetricCode == fact.MetricCode {
			return true
		}
	}
	return false
}

// extractCSV loads canonical exports, or a template the header matches.
// There is no heuristic fallback for CSV.
func extractCSV(path string, opts extract.Options) (ingestion, error) {
	book, err := tabular.Open(path)
	if err != nil {
		return ingestion{}, fmt.Errorf("%w: %w", extract.ErrParse, err)
	}

	detected := detect.Workbook(book)
	in := ingestion{schema: detected.Schema}

	var out extract.Output
	if fn, ok := extract.Lookup(detected.Schema); ok {
		sheetOpts := opts
		sheetOpts.Sheet = detected.Sheet
		out, err = fn(book, sheetOpts)
	} else {
		out, err = extract.CanonicalSheet(book.Sheets[0], opts)
	}
	if err != nil {
		return in, err
	}
	in.facts, in.policies = out.Facts, out.Policies
	return in, nil
}

func extractJSON(path string, opts extract.Options) (ingestion, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- upload inside the workspace raw zone
	if err != nil {
		return ingestion{}, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	out, err := extract.CanonicalJSON(data, opts)
	if err != nil {
		return ingestion{schema: detect.SchemaJSONPayload}, err
	}
	return ingestion{
		schema:   detect.SchemaJSONPayload,
		facts:    out.Facts,
		policies: out.Policies,
	}, nil
}

// extractDocument records images and documents. OCR output is stored as a
// document; no facts are derived from it.
func (w *Worker) extractDocument(ctx context.Context, job *model.Job, path string) (ingestion, error) {
	detected, err := detect.Detect(path)
	if err != nil {
		return ingestion{}, err
	}
	if detected.Schema == detect.SchemaUnknown {
		return ingestion{schema: detected.Schema}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}

	var result ocr.Result
	if detected.RequiresOCR {
		result, err = w.config.OCR.Extract(ctx, path)
		if err != nil {
			return ingestion{schema: detected.Schema}, fmt.Errorf("failed to run OCR: %w", err)
		}
	} else {
		data, err := os.ReadFile(path) // #nosec G304 -- upload inside the workspace raw zone
		if err != nil {
			return ingestion{}, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		result.Text = string(data)
		result.Metadata = map[string]any{"provider": "text", "filename": filepath.Base(path)}
	}

	metadata, err := model.FromAny(result.Metadata)
	if err != nil {
		return ingestion{}, fmt.Errorf("failed to encode OCR metadata: %w", err)
	}

	if _, err := w.files.CopyInto(job.WorkspaceID, path, workspace.ZoneDocuments); err != nil {
		return ingestion{}, err
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		WorkspaceID: job.WorkspaceID,
		SourceFile:  filepath.Base(path),
		Schema:      string(detected.Schema),
		RequiresOCR: detected.RequiresOCR,
		Text:        result.Text,
		Table:       result.Table,
		Confidence:  result.Confidence,
		OCRMetadata: metadata,
		IngestJobID: job.ID,
	}
	if _, err := w.files.WriteJSON(job.WorkspaceID, workspace.ZoneOCR, filepath.Base(path)+".json", doc); err != nil {
		return ingestion{}, err
	}

	return ingestion{schema: detected.Schema, doc: doc}, nil
}

// stamp normalizes periods and fills provenance on every record.
func stamp(in *ingestion, job *model.Job, digest string) {
	for i := range in.facts {
		f := &in.facts[i]
		f.WorkspaceID = job.WorkspaceID
		f.PeriodMonth = NormalizePeriod(f.PeriodMonth, job.WorkspaceID)
		if f.SourceFile == "" {
			f.SourceFile = job.Filename
		}
		f.SourceSHA256 = digest
		f.RawTextHash = textHash(factText(f))
		f.IngestJobID = job.ID
	}
	for i := range in.policies {
		p := &in.policies[i]
		p.WorkspaceID = job.WorkspaceID
		p.PeriodMonth = NormalizePeriod(p.PeriodMonth, job.WorkspaceID)
		if p.SourceFile == "" {
			p.SourceFile = job.Filename
		}
		if p.SnapshotHash == "" {
			p.SnapshotHash = p.ComputeHash()
		}
	}
}

// unparsedFact is the zero-value placeholder recorded for an unreadable
// spreadsheet so the upload stays visible in review.
func unparsedFact(workspaceID string) model.FactRecord {
	return model.FactRecord{
		WorkspaceID:      workspaceID,
		EmployeeName:     UnparsedLabel,
		EmployeeNameNorm: UnparsedLabel,
		PeriodMonth:      workspaceID,
		MetricCode:       model.MetricHourTotal,
		MetricValue:      decimal.Zero,
		Unit:             model.UnitHour,
		Currency:         model.DefaultCurrency,
		MetricLabel:      UnparsedLabel,
		Confidence:       decimal.Zero,
	}
}

// factText is the canonical source text of a fact.
func factText(f *model.FactRecord) string {
	return strings.Join([]string{
		f.EmployeeName,
		f.PeriodMonth,
		string(f.MetricCode),
		f.MetricValue.String(),
		f.MetricLabel,
		f.SourceSheet,
		strconv.Itoa(f.SourceRow),
		f.SourceCol,
	}, "|")
}

func textHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- upload inside the workspace raw zone
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
