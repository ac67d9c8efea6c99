// Command pagoractl is the Pagora operator CLI.
//
// Commands:
//
//	report --xlsx FILE [--json] [--out FILE]   Compute KPIs offline from a workbook
//	jobs trigger <name>                        Enqueue kpi:warmup or kpi:cache_bump
//	jobs stats [--json]                        Show default queue statistics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/pagora/pagora-edp/cmd/pagora/cli"
	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/edp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, stop))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, stop func()) int {
	defer stop()
	if len(args) == 0 {
		printUsage(stdout)
		return 0
	}
	switch args[0] {
	case "report":
		return runReport(ctx, args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pagoractl report --xlsx FILE [--json] [--out FILE] [--client X] [--manager X] [--quick-period N]")
	fmt.Fprintln(w, "  pagoractl jobs trigger kpi:warmup|kpi:cache_bump")
	fmt.Fprintln(w, "  pagoractl jobs stats [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  REDIS_ADDR              queue address for jobs commands (default 127.0.0.1:6379)")
	fmt.Fprintln(w, "  KPI_*                   KPI engine settings, as for the server")
	fmt.Fprintln(w, "  PAGORA_STATUS_ALIASES   extra status aliases, alias=status,...")
}

func runReport(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	xlsxPath := fs.String("xlsx", "", "workbook exported from the EDP spreadsheet")
	jsonOut := fs.Bool("json", false, "print the full KPI set as JSON")
	outPath := fs.String("out", "", "also write the KPI workbook to this path")
	client := fs.String("client", "", "filter by client")
	manager := fs.String("manager", "", "filter by project manager")
	quick := fs.Int("quick-period", 0, "only EDPs emitted in the last N days")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var kpi analytics.Config
	if err := envconfig.Process("KPI", &kpi); err != nil {
		fmt.Fprintf(stderr, "report: config: %v\n", err)
		return 1
	}
	aliases, err := edp.ParseAliases(os.Getenv("PAGORA_STATUS_ALIASES"))
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}

	return cli.ReportCommand(ctx, cli.ReportOptions{
		XLSXPath:   *xlsxPath,
		OutPath:    *outPath,
		JSONOutput: *jsonOut,
		Filter:     analytics.FilterSpec{Client: *client, Manager: *manager, QuickPeriod: *quick},
		Config:     kpi,
		Pipeline:   []analytics.PipelineOption{analytics.WithVocabulary(edp.DefaultVocabulary().With(aliases))},
		Stdout:     stdout,
		Stderr:     stderr,
	})
}

func runJobs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "jobs: expected trigger or stats")
		return 1
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	jobsCLI, err := cli.NewJobsCLI(redisAddr)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "jobs trigger: task name required")
			return 1
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		fs := flag.NewFlagSet("stats", flag.ContinueOnError)
		fs.SetOutput(stderr)
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		if *jsonOut {
			_ = json.NewEncoder(stdout).Encode(stats)
			return 0
		}
		cli.WriteStats(stdout, stats)
		return 0
	default:
		fmt.Fprintf(stderr, "jobs: unknown subcommand %s\n", args[0])
		return 1
	}
}
