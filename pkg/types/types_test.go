package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalProcessRuleWhitelist(t *testing.T) {
	r := NewCriticalProcessRule("svchost.exe", 1, `C:\Windows\System32\svchost.exe`, "", `C:\Windows\SysWOW64\svchost.exe`)

	assert.True(t, r.IsWhitelisted(`C:\Windows\System32\svchost.exe`))
	assert.False(t, r.IsWhitelisted(`c:\windows\system32\svchost.exe`), "membership is case sensitive")
	assert.False(t, r.IsWhitelisted(`C:\Windows\System32\svchost.exe\`), "no separator normalization")
	assert.False(t, r.IsWhitelisted(""), "empty path fields are dropped")
	assert.Equal(t, []string{`C:\Windows\SysWOW64\svchost.exe`, `C:\Windows\System32\svchost.exe`}, r.WhitelistPaths())
}

func TestZeroValueRuleHasNoWhitelist(t *testing.T) {
	var r CriticalProcessRule
	assert.False(t, r.IsWhitelisted("/usr/bin/svchost"))
	assert.Empty(t, r.WhitelistPaths())
}

func TestRuleSetNames(t *testing.T) {
	rs := RuleSet{
		NewCriticalProcessRule("init", 1),
		NewCriticalProcessRule("sshd", 2, "/usr/sbin/sshd"),
	}
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, []string{"init", "sshd"}, rs.Names())
}

func TestRuleSetInfo(t *testing.T) {
	rs := RuleSet{
		NewCriticalProcessRule("init", 1),
		NewCriticalProcessRule("sshd", 2, "/usr/sbin/sshd", "/usr/local/sbin/sshd"),
	}
	assert.Equal(t, []RuleInfo{
		{Name: "init", Threshold: 1, Whitelist: []string{}},
		{Name: "sshd", Threshold: 2, Whitelist: []string{"/usr/local/sbin/sshd", "/usr/sbin/sshd"}},
	}, rs.Info())
	assert.Empty(t, RuleSet{}.Info())
}

func TestPlaceholderPathNeverLooksAbsolute(t *testing.T) {
	for _, p := range []string{PlaceholderPath(nil), PlaceholderPath(errors.New("permission denied"))} {
		assert.True(t, strings.HasPrefix(p, PlaceholderPrefix))
		assert.False(t, strings.HasPrefix(p, "/"))
	}
	assert.Contains(t, PlaceholderPath(errors.New("permission denied")), "permission denied")
}

func TestProcessErrorUnwrap(t *testing.T) {
	cause := errors.New("access denied")
	err := error(&ProcessError{PID: 42, Op: "OpenProcess", Err: cause})

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "pid 42: OpenProcess: access denied", err.Error())
}
