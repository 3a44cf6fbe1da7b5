package scan

import "github.com/ner0x652/bonomen/pkg/types"

// Config holds scan configuration
type Config struct {
	Version  string                 // reported as AgentVersion
	Workers  int                    // detector goroutines, 1 = sequential
	Trace    func(types.Comparison) // verbose per-comparison hook
	Progress func(Progress)         // called synchronously on the scanning goroutine
}

// DefaultConfig returns the default scan configuration
func DefaultConfig() Config {
	return Config{
		Version: "dev",
		Workers: 1,
	}
}
