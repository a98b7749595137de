package factory

import (
	"time"

	"github.com/mcoot/pongarena/internal/dependencies/mocks"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/storage/memory"
	"github.com/mcoot/pongarena/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Matches do not run their own loop; tests step engines with Tick.
func NewTestApp() *TestApp {
	engineCfg := engine.DefaultConfig()
	engineCfg.TickInterval = 0
	engineCfg.PowerUpsEnabled = false

	return NewTestAppWithConfig(Config{EngineConfig: &engineCfg})
}

// NewTestAppWithConfig creates a mocked App with the given overrides
func NewTestAppWithConfig(cfg Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
