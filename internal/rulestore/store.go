package rulestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// DefaultRulesFile is looked up when no rules file is given
const DefaultRulesFile = "default_procs.txt"

var ErrRulesNotFound = errors.New("rules file not found")

// RuleStore resolves, loads and holds the rule set for a scan
type RuleStore struct {
	mu       sync.RWMutex
	fs       afero.Fs
	file     string // as requested by the operator
	rulesDir string // directory of the executable
	path     string // resolved path of the loaded file
	rules    types.RuleSet
}

// NewRuleStore creates a RuleStore reading from the OS filesystem.
// An empty file means DefaultRulesFile.
func NewRuleStore(file string) *RuleStore {
	return NewRuleStoreFs(afero.NewOsFs(), file, execDir())
}

// NewRuleStoreFs creates a RuleStore on an arbitrary filesystem
func NewRuleStoreFs(fs afero.Fs, file, rulesDir string) *RuleStore {
	if file == "" {
		file = DefaultRulesFile
	}
	return &RuleStore{
		fs:       fs,
		file:     file,
		rulesDir: rulesDir,
	}
}

// Load resolves the rules file and parses it. A path containing a directory
// is used as given; a bare file name is searched next to the executable,
// then in the working directory.
func (rs *RuleStore) Load() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	path, err := rs.resolve()
	if err != nil {
		return err
	}

	rules, err := LoadFile(rs.fs, path)
	if err != nil {
		return err
	}

	rs.path = path
	rs.rules = rules
	logger.Info("Rules loaded: %d rules, path=%s", len(rules), path)
	return nil
}

func (rs *RuleStore) resolve() (string, error) {
	if filepath.IsAbs(rs.file) || strings.ContainsRune(rs.file, filepath.Separator) || strings.ContainsRune(rs.file, '/') {
		if _, err := rs.fs.Stat(rs.file); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRulesNotFound, rs.file, err)
		}
		return rs.file, nil
	}

	var candidates []string
	if rs.rulesDir != "" {
		candidates = append(candidates, filepath.Join(rs.rulesDir, rs.file))
	}
	if wd, err := os.Getwd(); err == nil && wd != rs.rulesDir {
		candidates = append(candidates, filepath.Join(wd, rs.file))
	}
	candidates = append(candidates, rs.file)

	for _, c := range candidates {
		if _, err := rs.fs.Stat(c); err == nil {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched: [%s])", ErrRulesNotFound, rs.file, strings.Join(candidates, ", "))
}

// LoadFile parses the rules file at path
func LoadFile(fs afero.Fs, path string) (types.RuleSet, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	rules, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Rules returns the loaded rule set, nil before a successful Load
func (rs *RuleStore) Rules() types.RuleSet {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.rules
}

// Path returns the resolved path of the loaded rules file
func (rs *RuleStore) Path() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.path
}

// IsLoaded returns true if rules have been successfully loaded
func (rs *RuleStore) IsLoaded() bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.rules != nil
}

// execDir returns the directory containing the current executable.
// Falls back to "." if the executable path cannot be determined.
func execDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
