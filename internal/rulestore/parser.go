// Package rulestore loads critical process rules from disk.
//
// A rules file holds one rule per line:
//
//	<process-name>;<threshold>;<whitelisted-path-1>[;<whitelisted-path-2>...]
//
// Blank lines and lines starting with '#' are ignored.
package rulestore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ner0x652/bonomen/pkg/types"
)

const (
	fieldSeparator = ";"
	minFields      = 3
	commentPrefix  = "#"
)

var (
	ErrTooFewFields = errors.New("expected at least 3 ';'-separated fields")
	ErrBadThreshold = errors.New("threshold must be an unsigned 32-bit integer")
	ErrEmptyName    = errors.New("process name is empty")
)

// ParseError reports the rules file line that could not be parsed
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid rule at line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads a whole rules file. Any malformed line fails the parse and no
// partial rule set is returned.
func Parse(r io.Reader) (types.RuleSet, error) {
	rules := types.RuleSet{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}

		rule, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	return rules, nil
}

// ParseLine parses a single rule line
func ParseLine(line string) (types.CriticalProcessRule, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < minFields {
		return types.CriticalProcessRule{}, fmt.Errorf("%w, got %d", ErrTooFewFields, len(fields))
	}

	name := fields[0]
	if name == "" {
		return types.CriticalProcessRule{}, ErrEmptyName
	}

	threshold, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return types.CriticalProcessRule{}, fmt.Errorf("%w: %q", ErrBadThreshold, fields[1])
	}

	return types.NewCriticalProcessRule(name, uint32(threshold), fields[2:]...), nil
}
