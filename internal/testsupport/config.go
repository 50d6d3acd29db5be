package testsupport

import (
	"path/filepath"
	"testing"

	"sphered/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces settings seeded with unique temp directories per test so
// the record never lands in the machine-wide location.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.PIDFile = filepath.Join(base, "run", "sphere-daemon.pid")
	cfgVal.Poll.IntervalSeconds = 1
	cfgVal.Poll.CollectionWindowSeconds = 1
	cfgVal.Poll.GraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHelper points the retrieval helper at a stub script that prints output
// and exits with the given status.
func WithHelper(output string, exitCode int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Source.HelperCommand = WriteHelperStub(b.t, b.baseDir, output, exitCode)
	}
}

// WithHelperCommand sets the retrieval helper command verbatim.
func WithHelperCommand(command string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Source.HelperCommand = command
	}
}
