package scheduler

import (
	"time"

	"github.com/smallbiznis/feeledger/internal/config"
)

// Config controls the fee maintenance worker loop.
type Config struct {
	Enabled            bool
	PollInterval       time.Duration
	ReminderDaysBefore int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:       time.Hour,
		ReminderDaysBefore: 3,
	}
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Enabled:            cfg.Scheduler.Enabled,
		PollInterval:       cfg.Scheduler.PollInterval,
		ReminderDaysBefore: cfg.Scheduler.ReminderDaysBefore,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.ReminderDaysBefore < 0 {
		c.ReminderDaysBefore = defaults.ReminderDaysBefore
	}
	return c
}
