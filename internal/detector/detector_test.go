package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ner0x652/bonomen/pkg/types"
)

func TestDetectEndToEnd(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("svchost", 1, "/usr/bin/svchost"),
	}
	procs := []types.ProcessSnapshot{
		{PID: 100, Name: "scvhost", ExePath: "/tmp/evil/scvhost"},
		{PID: 101, Name: "svchost", ExePath: "/usr/bin/svchost"},
		{PID: 102, Name: "notepad", ExePath: "/usr/bin/notepad"},
	}

	result := New(Options{}).Detect(rules, procs)

	assert.Equal(t, []types.Finding{
		{PID: 100, ObservedName: "scvhost", RuleName: "svchost", Distance: 1, ExePath: "/tmp/evil/scvhost"},
	}, result.Findings)
	assert.Equal(t, uint32(1), result.Suspicious)
}

func TestDetectIgnoresExactNameRegardlessOfPath(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("lsass.exe", 3),
		types.NewCriticalProcessRule("svchost.exe", 3, `C:\Windows\System32\svchost.exe`),
	}
	procs := []types.ProcessSnapshot{
		{Name: "lsass.exe", ExePath: `C:\Users\Public\lsass.exe`},
		{Name: "svchost.exe", ExePath: `C:\Temp\svchost.exe`},
	}

	result := New(Options{}).Detect(rules, procs)

	assert.Empty(t, result.Findings)
	assert.Zero(t, result.Suspicious)
}

func TestDetectWhitelistSuppressesFinding(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("svchost", 2, "/usr/bin/svchost", "/opt/vendor/svchosts"),
	}
	procs := []types.ProcessSnapshot{
		{Name: "svchosts", ExePath: "/opt/vendor/svchosts"},
		{Name: "svchosts", ExePath: "/opt/vendor/svchosts/"},
	}

	result := New(Options{}).Detect(rules, procs)

	require.Len(t, result.Findings, 1, "only the exact whitelisted path is exempt")
	assert.Equal(t, "/opt/vendor/svchosts/", result.Findings[0].ExePath)
}

func TestDetectThresholdBoundary(t *testing.T) {
	procs := []types.ProcessSnapshot{{Name: "svhcots", ExePath: "/tmp/svhcots"}}
	require.Equal(t, 2, Distance("svhcots", "svchost"))

	for threshold, want := range map[uint32]int{0: 0, 1: 0, 2: 1, 5: 1} {
		rules := types.RuleSet{types.NewCriticalProcessRule("svchost", threshold)}
		result := New(Options{}).Detect(rules, procs)
		assert.Len(t, result.Findings, want, "threshold %d", threshold)
	}
}

func TestDetectOneFindingPerMatchingRule(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("svchost", 1),
		types.NewCriticalProcessRule("svchost2", 2),
		types.NewCriticalProcessRule("winlogon", 1),
	}
	procs := []types.ProcessSnapshot{
		{PID: 7, Name: "svch0st", ExePath: "/tmp/svch0st"},
		{PID: 8, Name: "svch0st", ExePath: "/tmp/other/svch0st"},
	}

	result := New(Options{}).Detect(rules, procs)

	require.Len(t, result.Findings, 4)
	assert.Equal(t, uint32(4), result.Suspicious, "count is findings, not distinct processes")
	assert.Equal(t, "svchost", result.Findings[0].RuleName)
	assert.Equal(t, "svchost2", result.Findings[1].RuleName)
	assert.Equal(t, uint32(2), result.Findings[1].Distance)
	assert.Equal(t, uint32(8), result.Findings[2].PID)
}

func TestDetectPlaceholderPathIsNeverWhitelisted(t *testing.T) {
	placeholder := types.PlaceholderPath(fmt.Errorf("permission denied"))
	rules := types.RuleSet{types.NewCriticalProcessRule("sshd", 1, "/usr/sbin/sshd")}
	procs := []types.ProcessSnapshot{{Name: "sshd_", ExePath: placeholder}}

	result := New(Options{}).Detect(rules, procs)

	require.Len(t, result.Findings, 1)
	assert.Equal(t, placeholder, result.Findings[0].ExePath)
}

func TestDetectEmptyInputs(t *testing.T) {
	result := New(Options{}).Detect(nil, nil)
	assert.NotNil(t, result.Findings)
	assert.Empty(t, result.Findings)
	assert.Zero(t, result.Suspicious)
}

func TestDetectTraceSeesEveryPair(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("svchost", 1),
		types.NewCriticalProcessRule("lsass", 1),
	}
	procs := []types.ProcessSnapshot{
		{Name: "scvhost", ExePath: "/tmp/scvhost"},
		{Name: "bash", ExePath: "/bin/bash"},
		{Name: "lsass", ExePath: "/bin/lsass"},
	}

	var seen []types.Comparison
	result := New(Options{Trace: func(c types.Comparison) { seen = append(seen, c) }}).Detect(rules, procs)

	require.Len(t, seen, len(rules)*len(procs))
	assert.Equal(t, "scvhost", seen[0].Process.Name)
	assert.Equal(t, "svchost", seen[0].Rule)
	assert.Equal(t, 1, seen[0].Distance)
	assert.Equal(t, 2, seen[0].Levenshtein, "a transposition costs two plain edits")
	assert.True(t, seen[0].Matched)
	assert.False(t, seen[5].Matched, "exact name is not a match")

	matched := 0
	for _, c := range seen {
		if c.Matched {
			matched++
		}
	}
	assert.Equal(t, int(result.Suspicious), matched)
}

func TestDetectParallelMatchesSequential(t *testing.T) {
	rules := types.RuleSet{
		types.NewCriticalProcessRule("svchost", 2, "/usr/bin/svchost"),
		types.NewCriticalProcessRule("lsass", 1),
		types.NewCriticalProcessRule("csrss", 1),
	}
	names := []string{"scvhost", "svchost", "lsas", "csrs", "crsss", "bash", "svchots", "lsasss"}
	var procs []types.ProcessSnapshot
	for i := 0; i < 500; i++ {
		name := names[i%len(names)]
		procs = append(procs, types.ProcessSnapshot{
			PID:     uint32(i),
			Name:    name,
			ExePath: fmt.Sprintf("/tmp/%d/%s", i, name),
		})
	}

	sequential := New(Options{}).Detect(rules, procs)

	traced := 0
	parallel := New(Options{
		Workers: 8,
		Trace:   func(types.Comparison) { traced++ },
	}).Detect(rules, procs)

	assert.Equal(t, sequential, parallel)
	assert.NotZero(t, parallel.Suspicious)
	assert.Equal(t, len(rules)*len(procs), traced)
}
