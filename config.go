package rewind

import "github.com/rs/zerolog"

// Config holds the package defaults shared by every state.
var Config config = config{
	logger:         zerolog.Nop(),
	entityChecks:   true,
	stateChecks:    true,
	arenaSize:      64 << 10,
	entityCapacity: 64,
	maxComponents:  256,
}

type config struct {
	logger         zerolog.Logger
	entityChecks   bool
	stateChecks    bool
	arenaSize      int
	entityCapacity int
	maxComponents  int
}

// SetLogger installs the logger used for state lifecycle events.
func (c *config) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

func (c *config) Logger() *zerolog.Logger {
	return &c.logger
}

// SetEntityChecks toggles dead-entity validation on component access.
func (c *config) SetEntityChecks(enabled bool) {
	c.entityChecks = enabled
}

// SetStateChecks toggles the locked-state validation on writes.
func (c *config) SetStateChecks(enabled bool) {
	c.stateChecks = enabled
}

// SetArenaSize sets the initial arena size in bytes for new states.
func (c *config) SetArenaSize(bytes int) {
	c.arenaSize = bytes
}

// SetEntityCapacity sets how many entity slots a new state validates up front.
func (c *config) SetEntityCapacity(n int) {
	c.entityCapacity = max(n, 1)
}

// SetMaxComponents caps the number of component types a schema accepts.
func (c *config) SetMaxComponents(n int) {
	c.maxComponents = n
}
