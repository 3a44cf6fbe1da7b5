// Package types defines the core data structures for bonomen
package types

import (
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// CriticalProcessRule describes one trusted process name, how far an observed
// name may drift from it before it stops counting as impersonation, and the
// locations the real binary is allowed to run from.
type CriticalProcessRule struct {
	Name      string
	Threshold uint32
	Whitelist mapset.Set[string]
}

// NewCriticalProcessRule builds a rule. Empty paths are not whitelisted.
func NewCriticalProcessRule(name string, threshold uint32, whitelist ...string) CriticalProcessRule {
	wl := mapset.NewThreadUnsafeSet[string]()
	for _, p := range whitelist {
		if p != "" {
			wl.Add(p)
		}
	}
	return CriticalProcessRule{
		Name:      name,
		Threshold: threshold,
		Whitelist: wl,
	}
}

// IsWhitelisted reports whether path is one of the rule's approved locations.
// Membership is an exact string comparison: no case folding, no symlink or
// separator normalization.
func (r CriticalProcessRule) IsWhitelisted(path string) bool {
	if r.Whitelist == nil {
		return false
	}
	return r.Whitelist.Contains(path)
}

// WhitelistPaths returns the approved locations in sorted order
func (r CriticalProcessRule) WhitelistPaths() []string {
	if r.Whitelist == nil {
		return []string{}
	}
	paths := r.Whitelist.ToSlice()
	sort.Strings(paths)
	return paths
}

// RuleSet is the ordered list of rules read from the rules file
type RuleSet []CriticalProcessRule

// Len returns the number of rules
func (rs RuleSet) Len() int {
	return len(rs)
}

// Names returns the rule names in file order
func (rs RuleSet) Names() []string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, r.Name)
	}
	return names
}

// Info returns the serializable form of the rule set
func (rs RuleSet) Info() []RuleInfo {
	infos := make([]RuleInfo, 0, len(rs))
	for _, r := range rs {
		infos = append(infos, RuleInfo{
			Name:      r.Name,
			Threshold: r.Threshold,
			Whitelist: r.WhitelistPaths(),
		})
	}
	return infos
}

// RuleInfo is a rule as reported in scan results
type RuleInfo struct {
	Name      string   `json:"name"`
	Threshold uint32   `json:"threshold"`
	Whitelist []string `json:"whitelist"`
}

// ProcessSnapshot represents one running process as seen during a scan
type ProcessSnapshot struct {
	PID     uint32 `json:"pid"`
	Name    string `json:"name"`
	ExePath string `json:"exe_path"`
}

// PlaceholderPrefix starts every diagnostic ExePath. Whitelist entries are
// absolute paths, so a placeholder can never match one.
const PlaceholderPrefix = "<exe unavailable"

// PlaceholderPath builds the diagnostic ExePath used when the executable
// location of a process cannot be resolved.
func PlaceholderPath(reason error) string {
	if reason == nil {
		return PlaceholderPrefix + ">"
	}
	return fmt.Sprintf("%s: %v>", PlaceholderPrefix, reason)
}

// ProcessError is a recoverable failure scoped to a single process
type ProcessError struct {
	PID uint32
	Op  string
	Err error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("pid %d: %s: %v", e.PID, e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Enumeration is the output of one process listing. Errors holds the
// recoverable per-process failures: on Windows the affected process is left
// out of Processes, on Unix it is kept with a placeholder ExePath.
type Enumeration struct {
	Processes []ProcessSnapshot
	Errors    []ProcessError
}

// Finding is one (observed process, critical rule) pair that looks like impersonation
type Finding struct {
	PID          uint32 `json:"pid"`
	ObservedName string `json:"observed_name"`
	RuleName     string `json:"rule_name"`
	Distance     uint32 `json:"distance"`
	ExePath      string `json:"exe_path"`
}

// Comparison is a single snapshot/rule evaluation, reported to trace hooks
type Comparison struct {
	Process     ProcessSnapshot
	Rule        string
	Distance    int
	Levenshtein int // plain edit distance, for display
	Matched     bool
}

// DetectionResult is the detector output
type DetectionResult struct {
	Findings   []Finding `json:"findings"`
	Suspicious uint32    `json:"suspicious"`
}

// HostInfo represents the host system information
type HostInfo struct {
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Platform  string `json:"platform,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
	Arch      string `json:"arch"`
}

// ProcessIssue is the serializable form of a ProcessError
type ProcessIssue struct {
	PID    uint32 `json:"pid"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// ScanSummary represents the summary of a scan
type ScanSummary struct {
	TotalRules     int    `json:"total_rules"`
	TotalProcesses int    `json:"total_processes"`
	ProcessErrors  int    `json:"process_errors"`
	Suspicious     uint32 `json:"suspicious"`
}

// ScanResult represents the complete scan result
type ScanResult struct {
	AgentVersion   string         `json:"agent_version"`
	ScanID         string         `json:"scan_id"`
	ScanTime       time.Time      `json:"scan_time"`
	ScanDurationMs int64          `json:"scan_duration_ms"`
	Host           HostInfo       `json:"host"`
	RulesFile      string         `json:"rules_file"`
	Rules          []RuleInfo     `json:"rules"`
	Summary        ScanSummary    `json:"summary"`
	Findings       []Finding      `json:"findings"`
	ProcessErrors  []ProcessIssue `json:"process_errors,omitempty"`
}
