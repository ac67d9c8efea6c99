package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/analytics/export"
	"github.com/pagora/pagora-edp/internal/datasource"
)

// ReportOptions configures the offline report command.
type ReportOptions struct {
	XLSXPath   string
	Source     io.Reader
	OutPath    string
	JSONOutput bool
	Filter     analytics.FilterSpec
	Config     analytics.Config
	Pipeline   []analytics.PipelineOption
	Now        func() time.Time
	Stdout     io.Writer
	Stderr     io.Writer
}

// ReportCommand computes a KPI set from an exported workbook without any
// network dependency and prints it. It returns the process exit code.
func ReportCommand(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.XLSXPath == "" && opts.Source == nil {
		fmt.Fprintln(opts.Stderr, "report: --xlsx is required")
		return 1
	}

	var source *datasource.XLSXSource
	if opts.Source != nil {
		src, err := datasource.NewXLSXSourceFromReader(opts.Source, nil)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "report: %v\n", err)
			return 1
		}
		source = src
	} else {
		source = datasource.NewXLSXSource(opts.XLSXPath, nil)
	}

	pipeline, err := analytics.NewPipeline(opts.Config, opts.Pipeline...)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	svc := analytics.NewService(source, pipeline, nil, analytics.WithClock(opts.Now))
	set, err := svc.Compute(ctx, opts.Filter)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "report: compute: %v\n", err)
		return 1
	}
	if set.DataUnavailable {
		fmt.Fprintf(opts.Stderr, "report: workbook %s could not be read\n", opts.XLSXPath)
		return 2
	}

	if opts.OutPath != "" {
		if err := writeWorkbookFile(opts.OutPath, set); err != nil {
			fmt.Fprintf(opts.Stderr, "report: %v\n", err)
			return 1
		}
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(set); err != nil {
			fmt.Fprintf(opts.Stderr, "report: encode: %v\n", err)
			return 1
		}
		return 0
	}

	printSummary(opts.Stdout, set)
	return 0
}

func printSummary(w io.Writer, set analytics.KPISet) {
	fmt.Fprintf(w, "EDPs: %d total, %d filtered, %d field issues\n\n", set.TotalRecords, set.FilteredRecords, set.FieldIssues)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	summary := export.Summary(set)
	for _, row := range summary.Rows {
		fmt.Fprintf(tw, "%s\t%s\n", export.FormatCell(row[0]), export.FormatCell(row[1]))
	}
	_ = tw.Flush()

	if len(set.Ranking) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tJefe\tScore")
		for _, entry := range set.Ranking {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\n", entry.Position, entry.Manager, entry.Score)
		}
		_ = tw.Flush()
	}
}

func writeWorkbookFile(path string, set analytics.KPISet) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return export.WriteWorkbook(f, set)
}
