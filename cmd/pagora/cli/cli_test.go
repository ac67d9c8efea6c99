package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pagora/pagora-edp/internal/analytics"
	_ "github.com/pagora/pagora-edp/testing"
)

var reportNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "edp"))
	rows := [][]any{
		{"n_edp", "jefe_proyecto", "cliente", "estado", "monto_aprobado", "fecha_emision", "fecha_envio_cliente", "fecha_conformidad"},
		{"1", "Ana", "Codelco", "pagado", 1000000, "2024-01-05", "2024-01-10", "2024-01-30"},
		{"2", "Bruno", "Enel", "enviado", 2500000, "2024-02-01", "2024-02-05", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("edp", cell, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReportCommandJSON(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := ReportCommand(context.Background(), ReportOptions{
		Source:     workbook(t),
		JSONOutput: true,
		Config:     analytics.DefaultConfig(),
		Now:        func() time.Time { return reportNow },
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, 0, code, stderr.String())

	var set analytics.KPISet
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &set))
	require.Equal(t, 2, set.TotalRecords)
	require.False(t, set.DataUnavailable)
	require.Equal(t, "2500000", set.Financial.PendingAmount.String())
}

func TestReportCommandTextWithFilterAndWorkbook(t *testing.T) {
	out := filepath.Join(t.TempDir(), "kpis.xlsx")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := ReportCommand(context.Background(), ReportOptions{
		Source:  workbook(t),
		OutPath: out,
		Filter:  analytics.FilterSpec{Client: "enel"},
		Config:  analytics.DefaultConfig(),
		Now:     func() time.Time { return reportNow },
		Stdout:  stdout,
		Stderr:  stderr,
	})
	require.Equal(t, 0, code, stderr.String())
	require.True(t, strings.HasPrefix(stdout.String(), "EDPs: 2 total, 1 filtered"), stdout.String())
	require.Contains(t, stdout.String(), "financial.pending_amount")

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "Resumen")
}

func TestReportCommandErrors(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := ReportCommand(context.Background(), ReportOptions{Config: analytics.DefaultConfig(), Stderr: stderr, Stdout: new(bytes.Buffer)})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "--xlsx")

	stderr.Reset()
	code = ReportCommand(context.Background(), ReportOptions{
		XLSXPath: filepath.Join(t.TempDir(), "missing.xlsx"),
		Config:   analytics.DefaultConfig(),
		Stdout:   new(bytes.Buffer),
		Stderr:   stderr,
	})
	require.Equal(t, 2, code)

	stderr.Reset()
	bad := analytics.DefaultConfig()
	bad.AgingEdges = []int{30, 15}
	code = ReportCommand(context.Background(), ReportOptions{Source: workbook(t), Config: bad, Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "AgingEdges")
}

type stubQueue struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubQueue) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestInspectQueue(t *testing.T) {
	stats, err := inspect(stubQueue{info: &asynq.QueueInfo{Queue: "default", Pending: 2, Retry: 1, Processed: 9}})
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: "default", Pending: 2, Retry: 1, Processed: 9}, stats)

	out := new(bytes.Buffer)
	WriteStats(out, stats)
	require.Contains(t, out.String(), "pending:    2")

	_, err = inspect(stubQueue{err: errors.New("redis down")})
	require.Error(t, err)
}

func TestJobsCLIRequiresAddress(t *testing.T) {
	_, err := NewJobsCLI("")
	require.Error(t, err)

	var c *JobsCLI
	_, err = c.Trigger(context.Background(), "kpi:warmup")
	require.Error(t, err)
}
