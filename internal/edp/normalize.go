package edp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Normalizer converts loosely typed spreadsheet rows into Records.
// It never fails: malformed cells become nulls and are reported as FieldErrors.
type Normalizer struct {
	vocab *Vocabulary
}

// NewNormalizer builds a normalizer. A nil vocabulary uses DefaultVocabulary.
func NewNormalizer(vocab *Vocabulary) *Normalizer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Normalizer{vocab: vocab}
}

// Vocabulary exposes the status vocabulary in use.
func (n *Normalizer) Vocabulary() *Vocabulary {
	return n.vocab
}

// Normalize converts a single row, discarding field issues.
func (n *Normalizer) Normalize(row map[string]any) Record {
	rec, _ := n.normalize(0, row)
	return rec
}

// NormalizeWithIssues converts a single row and reports the fields it had to null out.
func (n *Normalizer) NormalizeWithIssues(row map[string]any) (Record, []FieldError) {
	return n.normalize(0, row)
}

// NormalizeAll converts every row and collects the field issues with their row index.
func (n *Normalizer) NormalizeAll(rows []map[string]any) ([]Record, []FieldError) {
	records := make([]Record, 0, len(rows))
	var issues []FieldError
	for i, row := range rows {
		rec, errs := n.normalize(i, row)
		records = append(records, rec)
		issues = append(issues, errs...)
	}
	return records, issues
}

func (n *Normalizer) normalize(index int, row map[string]any) (Record, []FieldError) {
	f := foldRow(row)
	var issues []FieldError
	report := func(field string, value any, err error) {
		issues = append(issues, FieldError{Row: index, Field: field, Value: value, Err: err})
	}

	text := func(col string) string {
		v, _, _ := f.lookup(recordColumns[col])
		return parseText(v)
	}
	money := func(col string) decimal.NullDecimal {
		v, _, _ := f.lookup(recordColumns[col])
		d, err := parseMoney(v)
		if err != nil {
			report(col, v, err)
		}
		return d
	}
	date := func(col string) time.Time {
		v, _, _ := f.lookup(recordColumns[col])
		t, err := parseDate(v)
		if err != nil {
			report(col, v, err)
		}
		return t
	}

	var rec Record
	if v, _, ok := f.lookup(recordColumns[colID]); ok {
		id, err := parseInt64(v)
		if err != nil {
			report(colID, v, err)
		}
		rec.ID = id
	}
	rec.Number = text(colNumber)
	rec.Project = text(colProject)
	rec.Client = text(colClient)
	rec.Manager = text(colManager)
	rec.Month = text(colMonth)
	rec.ProposedAmount = money(colProposed)
	rec.ApprovedAmount = money(colApproved)
	rec.EmittedAt = date(colEmitted)
	rec.SentAt = date(colSent)
	rec.EstimatedPaymentAt = date(colEstimated)
	rec.ConformedAt = date(colConformed)
	rec.RegisteredAt = date(colRegistered)
	rec.StatusText = Lower(text(colStatus))
	rec.Status = n.vocab.Resolve(rec.StatusText)
	rec.DetailedStatus = text(colDetailedStatus)
	rec.RejectionReason = text(colRejection)
	rec.FailureType = text(colFailureType)
	if v, _, ok := f.lookup(recordColumns[colConformanceSent]); ok {
		rec.ConformanceSent = parseBool(v)
	}
	return rec, issues
}
