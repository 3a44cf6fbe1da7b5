package detector

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// Options tunes a Detector
type Options struct {
	// Workers > 1 spreads processes over a goroutine pool. Findings keep the
	// sequential order; Trace calls do not.
	Workers int
	// Trace, when set, is called once per (process, rule) comparison
	Trace func(types.Comparison)
}

// Detector is the impersonation detection engine. It keeps no state
// between calls.
type Detector struct {
	opts Options
}

// New creates a new Detector instance
func New(opts Options) *Detector {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Detector{opts: opts}
}

// Detect compares every process against every rule. A pair is a finding when
// the names differ by at least one and at most rule.Threshold edits and the
// process does not run from a whitelisted path. A process matching several
// rules yields one finding per rule.
func (d *Detector) Detect(rules types.RuleSet, processes []types.ProcessSnapshot) types.DetectionResult {
	logger.SubSection("Impersonation Detection")
	logger.Debug("Comparing %d processes against %d rules", len(processes), len(rules))
	start := time.Now()

	var findings []types.Finding
	if d.opts.Workers > 1 && len(processes) > 1 {
		findings = d.detectParallel(rules, processes)
	} else {
		for _, proc := range processes {
			findings = append(findings, matchProcess(proc, rules, d.opts.Trace)...)
		}
	}

	if findings == nil {
		findings = []types.Finding{}
	}
	for _, f := range findings {
		logger.DetectionInfo(f.ObservedName, f.RuleName, f.Distance, f.ExePath)
	}

	logger.Timing("Detector.Detect", start)
	logger.Debug("Impersonation detection complete: %d findings", len(findings))

	return types.DetectionResult{
		Findings:   findings,
		Suspicious: uint32(len(findings)),
	}
}

func (d *Detector) detectParallel(rules types.RuleSet, processes []types.ProcessSnapshot) []types.Finding {
	workers := min(d.opts.Workers, len(processes))
	pool, err := ants.NewPool(workers)
	if err != nil {
		logger.Warn("Worker pool unavailable, matching sequentially: %v", err)
		var findings []types.Finding
		for _, proc := range processes {
			findings = append(findings, matchProcess(proc, rules, d.opts.Trace)...)
		}
		return findings
	}
	defer pool.Release()

	trace := d.opts.Trace
	if trace != nil {
		var traceMu sync.Mutex
		inner := trace
		trace = func(c types.Comparison) {
			traceMu.Lock()
			defer traceMu.Unlock()
			inner(c)
		}
	}

	// one result slot per partition, merged in order afterwards
	chunk := (len(processes) + workers - 1) / workers
	parts := make([][]types.Finding, (len(processes)+chunk-1)/chunk)
	var wg sync.WaitGroup
	for slot := range parts {
		lo := slot * chunk
		hi := min(lo+chunk, len(processes))
		batch := processes[lo:hi]

		task := func() {
			defer wg.Done()
			var out []types.Finding
			for _, proc := range batch {
				out = append(out, matchProcess(proc, rules, trace)...)
			}
			parts[slot] = out
		}

		wg.Add(1)
		if err := pool.Submit(task); err != nil {
			logger.Warn("Worker pool rejected batch, matching inline: %v", err)
			task()
		}
	}
	wg.Wait()

	var findings []types.Finding
	for _, part := range parts {
		findings = append(findings, part...)
	}
	return findings
}

// matchProcess evaluates one process against all rules
func matchProcess(proc types.ProcessSnapshot, rules types.RuleSet, trace func(types.Comparison)) []types.Finding {
	var findings []types.Finding

	for _, rule := range rules {
		distance := Distance(proc.Name, rule.Name)
		matched := isImpersonation(distance, rule, proc.ExePath)

		if trace != nil {
			trace(types.Comparison{
				Process:     proc,
				Rule:        rule.Name,
				Distance:    distance,
				Levenshtein: Levenshtein(proc.Name, rule.Name),
				Matched:     matched,
			})
		}

		if matched {
			findings = append(findings, types.Finding{
				PID:          proc.PID,
				ObservedName: proc.Name,
				RuleName:     rule.Name,
				Distance:     uint32(distance),
				ExePath:      proc.ExePath,
			})
		}
	}

	return findings
}

// isImpersonation applies the match policy to one comparison.
// Distance 0 is the genuine process, above the threshold is unrelated.
func isImpersonation(distance int, rule types.CriticalProcessRule, exePath string) bool {
	if distance <= 0 || uint64(distance) > uint64(rule.Threshold) {
		return false
	}
	return !rule.IsWhitelisted(exePath)
}
