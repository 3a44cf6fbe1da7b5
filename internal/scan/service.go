// Package scan provides the scan service that orchestrates rule loading,
// process collection and detection.
package scan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ner0x652/bonomen/internal/collector"
	"github.com/ner0x652/bonomen/internal/detector"
	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/internal/rulestore"
	"github.com/ner0x652/bonomen/pkg/types"
)

// ErrNoProcesses means enumeration succeeded but yielded nothing to inspect
var ErrNoProcesses = errors.New("no process could be inspected")

// Service manages the scan lifecycle
type Service struct {
	config    Config
	ruleStore *rulestore.RuleStore
	collector collector.ProcessCollector
}

// Progress represents scan progress reported through Config.Progress
type Progress struct {
	Step     int    `json:"step"`
	Total    int    `json:"total"`
	StepName string `json:"stepName"`
	Detail   string `json:"detail"`
	Done     bool   `json:"done"`
}

// NewService creates a new scan service
func NewService(cfg Config, rs *rulestore.RuleStore, pc collector.ProcessCollector) *Service {
	return &Service{
		config:    cfg,
		ruleStore: rs,
		collector: pc,
	}
}

const totalSteps = 3

// emitProgress reports a progress update to the callback (if set).
func (s *Service) emitProgress(step int, name, detail string) {
	s.report(Progress{
		Step:     step,
		Total:    totalSteps,
		StepName: name,
		Detail:   detail,
	})
}

func (s *Service) report(p Progress) {
	if s.config.Progress != nil {
		s.config.Progress(p)
	}
}

// Execute runs one scan.
// Step 1: load rules unless the store already holds them; a bad rules file
// aborts before any process is touched
// Step 2: enumerate processes; failure to list the process table aborts
// Step 3: match processes against rules
func (s *Service) Execute() (*types.ScanResult, error) {
	startTime := time.Now()

	result := &types.ScanResult{
		AgentVersion: s.config.Version,
		ScanID:       uuid.New().String(),
		ScanTime:     startTime,
		Findings:     make([]types.Finding, 0),
	}

	// ── Step 1: Load rules ──
	s.emitProgress(1, "Loading rules...", "")
	if !s.ruleStore.IsLoaded() {
		if err := s.ruleStore.Load(); err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
	}
	rules := s.ruleStore.Rules()
	if rules.Len() == 0 {
		logger.Warn("Rules file %s contains no rules", s.ruleStore.Path())
	}
	logger.Debug("Critical processes: %s", strings.Join(rules.Names(), ", "))
	result.RulesFile = s.ruleStore.Path()
	result.Rules = rules.Info()
	result.Summary.TotalRules = rules.Len()
	s.emitProgress(1, "Rules loaded", fmt.Sprintf("%d rules from %s", rules.Len(), result.RulesFile))

	// ── Step 2: Collect processes ──
	s.emitProgress(2, "Collecting processes...", "")
	enum, err := s.collector.Collect()
	if err != nil {
		return nil, fmt.Errorf("scan did not run: %w", err)
	}
	if len(enum.Processes) == 0 {
		return nil, fmt.Errorf("scan did not run: %w (%d errors)", ErrNoProcesses, len(enum.Errors))
	}

	for _, perr := range multierr.Errors(collector.CombineErrors(enum)) {
		logger.Debug("Process error: %v", perr)
	}
	if len(enum.Errors) > 0 {
		logger.Warn("%d processes could not be fully inspected", len(enum.Errors))
	}

	result.Summary.TotalProcesses = len(enum.Processes)
	result.Summary.ProcessErrors = len(enum.Errors)
	for _, perr := range enum.Errors {
		result.ProcessErrors = append(result.ProcessErrors, types.ProcessIssue{
			PID:    perr.PID,
			Op:     perr.Op,
			Reason: fmt.Sprint(perr.Err),
		})
	}
	s.emitProgress(2, "Processes collected", fmt.Sprintf("%d processes, %d errors", len(enum.Processes), len(enum.Errors)))

	// ── Step 3: Detect impersonation ──
	s.emitProgress(3, "Matching processes against rules...", "")
	det := detector.New(detector.Options{
		Workers: s.config.Workers,
		Trace:   s.config.Trace,
	})
	detection := det.Detect(rules, enum.Processes)
	result.Findings = detection.Findings
	result.Summary.Suspicious = detection.Suspicious

	result.Host = collector.GetHostInfo()
	result.ScanDurationMs = time.Since(startTime).Milliseconds()

	s.report(Progress{
		Step:     totalSteps,
		Total:    totalSteps,
		StepName: "Scan complete",
		Detail:   fmt.Sprintf("%d findings, %.1fs elapsed", detection.Suspicious, time.Since(startTime).Seconds()),
		Done:     true,
	})

	return result, nil
}
