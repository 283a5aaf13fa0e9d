// Package autopilot runs the autonomous assignment policy: on a fixed
// cadence it scans pending tasks and self-assigns unclaimed ones to a
// designated manager entity, then notifies subscribed clients.
package autopilot

import "sync"

// Config is the autopilot policy switch. Disabled at process start; not
// persisted, so a restart returns to disabled.
type Config struct {
	Enabled bool `json:"enabled"`
	// ManagerID identifies the entity empowered to self-assign. Zero
	// means unset, which disables the policy as effectively as Enabled=false.
	ManagerID int64 `json:"manager_id,omitempty"`
}

// ConfigCell is the one synchronization point for the process-wide
// autopilot config. Updates replace the whole value and take effect on the
// loop's next iteration; there is no mid-iteration preemption.
type ConfigCell struct {
	mu  sync.RWMutex
	cfg Config
}

// NewConfigCell returns a cell holding the disabled config.
func NewConfigCell() *ConfigCell {
	return &ConfigCell{}
}

// Get returns the current config value.
func (c *ConfigCell) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Set replaces the config wholesale.
func (c *ConfigCell) Set(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}
