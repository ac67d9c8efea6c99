package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/edp"
)

func sampleSet(t *testing.T) analytics.KPISet {
	t.Helper()
	p, err := analytics.NewPipeline(analytics.DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	waiting := 12
	records := []edp.Record{{
		Number:         "7",
		Manager:        "Ana",
		Client:         "Codelco",
		Status:         edp.StatusSent,
		ApprovedAmount: decimal.NewNullDecimal(decimal.NewFromInt(1_500_000)),
		EmittedAt:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		WaitingDays:    &waiting,
	}}
	return p.Run(analytics.Input{Records: records}, analytics.FilterSpec{}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestWriteKPICSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteKPICSV(buf, sampleSet(t)); err != nil {
		t.Fatalf("kpi csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) < 10 {
		t.Fatalf("expected metric rows, got %d", len(records))
	}
	found := false
	for _, r := range records {
		if r[0] == "financial.pending_amount" {
			found = r[1] == "1500000"
		}
	}
	if !found {
		t.Fatalf("pending amount row missing or wrong")
	}
}

func TestWriteNamedCSV(t *testing.T) {
	set := sampleSet(t)
	buf := &bytes.Buffer{}
	if err := WriteNamedCSV(buf, set, TableAging); err != nil {
		t.Fatalf("aging csv: %v", err)
	}
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("csv read: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header and 4 buckets, got %d rows", len(records))
	}
	if records[1][2] != "1500000.00" {
		t.Fatalf("unexpected amount %q", records[1][2])
	}
	if err := WriteNamedCSV(&bytes.Buffer{}, set, "Nope"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestWriteWorkbook(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteWorkbook(buf, sampleSet(t)); err != nil {
		t.Fatalf("workbook: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 7 || sheets[0] != TableSummary {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	value, err := f.GetCellValue(TableRanking, "B2")
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	if value != "Ana" {
		t.Fatalf("expected ranked manager, got %q", value)
	}
}
