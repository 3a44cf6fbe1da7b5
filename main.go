package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ner0x652/bonomen/internal/collector"
	"github.com/ner0x652/bonomen/internal/config"
	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/internal/metrics"
	"github.com/ner0x652/bonomen/internal/output"
	"github.com/ner0x652/bonomen/internal/rulestore"
	"github.com/ner0x652/bonomen/internal/scan"
)

// Version is overridden at build time with -ldflags "-X main.Version=..."
var Version = "0.3.0"

// Exit codes
const (
	exitClean    = 0 // scan ran, nothing suspicious
	exitFindings = 1 // scan ran, at least one finding
	exitNoScan   = 2 // the scan did not run
)

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}

func run(name string, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(name, args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitClean
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitNoScan
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "bonomen %s\n", Version)
		return exitClean
	}

	if err := logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: true,
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitNoScan
	}
	defer logger.Close()

	out := output.New(output.Options{
		Quiet:   cfg.Quiet,
		Verbose: cfg.Verbose,
		JSON:    cfg.JSON,
	}, stdout)
	errOut := output.New(output.Options{}, stderr)

	out.PrintHeader(Version)

	if !cfg.SkipPrivilegeCheck && !collector.IsRunningAsAdmin() {
		errOut.PrintError("%v (use --skip-privilege-check to scan anyway)", collector.ErrInsufficientPrivilege)
		return exitNoScan
	}

	scanCfg := scan.DefaultConfig()
	scanCfg.Version = Version
	scanCfg.Workers = cfg.Workers
	if cfg.Verbose {
		scanCfg.Trace = out.Trace
		if cfg.JSON {
			// keep stdout a single JSON document
			scanCfg.Trace = output.New(output.Options{Verbose: true}, stderr).Trace
		}
	}

	scanCfg.Progress = func(p scan.Progress) {
		if p.Detail == "" {
			out.PrintStep(p.Step, p.Total, p.StepName)
			return
		}
		out.PrintDetail("%s", p.Detail)
	}

	rs := rulestore.NewRuleStore(cfg.RulesFile)
	if err := rs.Load(); err != nil {
		logger.Error("Failed to load rules: %v", err)
		errOut.PrintError("failed to load rules: %v", err)
		return exitNoScan
	}
	out.PrintRulesFile(rs.Path())
	out.PrintRules(rs.Rules().Info())

	pc := collector.NewProcessCollector(cfg.CollectorOptions())

	result, err := scan.NewService(scanCfg, rs, pc).Execute()
	if err != nil {
		logger.Error("Scan failed: %v", err)
		errOut.PrintError("%v", err)
		return exitNoScan
	}
	logger.Info("Scan %s finished: %d findings", result.ScanID, result.Summary.Suspicious)

	out.PrintFindings(result.Findings)
	out.PrintSummary(result)
	out.PrintLogPath(logger.GetLogPath())

	if cfg.JSON {
		if err := out.WriteJSON(result); err != nil {
			errOut.PrintError("%v", err)
			return exitNoScan
		}
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, result); err != nil {
			logger.Error("Metrics export failed: %v", err)
			errOut.PrintError("%v", err)
		}
	}

	if result.Summary.Suspicious > 0 {
		return exitFindings
	}
	return exitClean
}
