// Package output handles CLI output formatting
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ner0x652/bonomen/pkg/types"
)

// Options for output handler
type Options struct {
	Quiet   bool
	Verbose bool
	JSON    bool
}

// Handler manages CLI output. It is safe for concurrent use.
type Handler struct {
	opts Options

	mu       sync.Mutex // guards w and the trace state
	w        io.Writer
	lastPID  uint32
	lastName string
	traced   bool
}

// New creates a new output handler writing to w
func New(opts Options, w io.Writer) *Handler {
	return &Handler{opts: opts, w: w}
}

// chatty reports whether progress and decoration are printed
func (h *Handler) chatty() bool {
	return !h.opts.Quiet && !h.opts.JSON
}

func (h *Handler) println(lines ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(h.w, line)
	}
}

// PrintHeader prints the banner and version
func (h *Handler) PrintHeader(version string) {
	if !h.chatty() {
		return
	}
	h.println(
		TitleStyle.Render(banner),
		SubtitleStyle.Render(fmt.Sprintf("  process impersonation detector  v%s", version)),
		"",
	)
}

// PrintRulesFile prints the rules file in use
func (h *Handler) PrintRulesFile(path string) {
	if !h.chatty() {
		return
	}
	h.println("Standard processes file: " + path)
}

// PrintRules lists the loaded rules in verbose mode
func (h *Handler) PrintRules(rules []types.RuleInfo) {
	if !h.opts.Verbose || !h.chatty() {
		return
	}
	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		whitelist := "none"
		if len(r.Whitelist) > 0 {
			whitelist = strings.Join(r.Whitelist, ", ")
		}
		lines = append(lines, DetailStyle.Render(fmt.Sprintf("  %s (threshold %d) whitelist: %s", r.Name, r.Threshold, whitelist)))
	}
	h.println(lines...)
}

// PrintStep prints a scan step
func (h *Handler) PrintStep(current, total int, message string) {
	if !h.chatty() {
		return
	}
	h.println(StepStyle.Render(fmt.Sprintf("[%d/%d] %s", current, total, message)))
}

// PrintDetail prints a detail line
func (h *Handler) PrintDetail(format string, args ...any) {
	if !h.chatty() {
		return
	}
	h.println(DetailStyle.Render("      └─ " + fmt.Sprintf(format, args...)))
}

// Trace prints one comparison. A process header is printed whenever the
// compared process changes.
func (h *Handler) Trace(c types.Comparison) {
	if !h.opts.Verbose || h.opts.JSON {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.traced || c.Process.PID != h.lastPID || c.Process.Name != h.lastName {
		fmt.Fprintf(h.w, "> Checking system process: %s\n", c.Process.Name)
		fmt.Fprintf(h.w, "> system process executable absolute path: %s\n", c.Process.ExePath)
		h.lastPID, h.lastName, h.traced = c.Process.PID, c.Process.Name, true
	}
	fmt.Fprintf(h.w, "\tagainst critical process: %s, distance: %d (levenshtein %d)\n", c.Rule, c.Distance, c.Levenshtein)
}

// PrintFindings prints one line per finding
func (h *Handler) PrintFindings(findings []types.Finding) {
	if h.opts.JSON {
		return
	}
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		line := fmt.Sprintf("Suspicious: %s <-> %s : distance %d", f.ObservedName, f.RuleName, f.Distance)
		lines = append(lines, FindingStyle.Render(line)+" "+DetailStyle.Render(fmt.Sprintf("(pid %d, %s)", f.PID, f.ExePath)))
	}
	h.println(lines...)
}

// PrintSummary prints the closing count line
func (h *Handler) PrintSummary(result *types.ScanResult) {
	if h.opts.JSON {
		return
	}
	line := fmt.Sprintf("Found %d suspicious processes.", result.Summary.Suspicious)
	if result.Summary.Suspicious > 0 {
		line = AlertStyle.Render(line)
	} else {
		line = CleanStyle.Render(line)
	}
	lines := []string{line}
	if h.chatty() {
		if result.Summary.ProcessErrors > 0 {
			lines = append(lines, DetailStyle.Render(fmt.Sprintf("%d processes could not be fully inspected.", result.Summary.ProcessErrors)))
		}
		lines = append(lines, "Done!")
	}
	h.println(lines...)
}

// PrintLogPath points at the diagnostic log, if one was written
func (h *Handler) PrintLogPath(path string) {
	if path == "" || !h.chatty() {
		return
	}
	h.println(DetailStyle.Render("Log: " + path))
}

// WriteJSON writes the full scan result as indented JSON
func (h *Handler) WriteJSON(result *types.ScanResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	enc := json.NewEncoder(h.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return nil
}

// PrintError prints an error message
func (h *Handler) PrintError(format string, args ...any) {
	h.println(AlertStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}
