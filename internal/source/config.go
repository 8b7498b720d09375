package source

import (
	"errors"
	"time"

	"github.com/renjunqu/taildir/internal/reader"
)

// Config holds the source scheduler options together with the nested
// reader configuration.
type Config struct {
	Reader reader.Config `mapstructure:"reader"`

	// PollInterval is the cadence of reconciliation passes.
	PollInterval time.Duration `mapstructure:"poll-interval"`
	// BatchSize bounds the number of events per read/commit cycle.
	BatchSize int `mapstructure:"batch-size"`
	// WritePositionInterval is the cadence of position file writes.
	WritePositionInterval time.Duration `mapstructure:"write-position-interval"`
	// IdleTimeout closes handles of files not updated for this long. The
	// registry entry is kept; growth reopens the handle.
	IdleTimeout time.Duration `mapstructure:"idle-timeout"`
	// BackoffWithoutNL holds back an unterminated trailing line until a
	// later append terminates it.
	BackoffWithoutNL bool `mapstructure:"backoff-without-nl"`
	// MaxDeliveryElapsed caps the retry window for a failed delivery before
	// the batch is rolled back to the next poll.
	MaxDeliveryElapsed time.Duration `mapstructure:"max-delivery-elapsed"`
}

// Default fills in the default scheduler knobs.
func (c *Config) Default() {
	c.PollInterval = 2 * time.Second
	c.BatchSize = 100
	c.WritePositionInterval = 3 * time.Second
	c.IdleTimeout = 120 * time.Second
	c.BackoffWithoutNL = true
	c.MaxDeliveryElapsed = 30 * time.Second
	c.Reader.Default()
}

// Validate checks the scheduler options and the nested reader config.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("source.poll-interval must be > 0")
	}
	if c.BatchSize <= 0 {
		return errors.New("source.batch-size must be > 0")
	}
	if c.WritePositionInterval <= 0 {
		return errors.New("source.write-position-interval must be > 0")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("source.idle-timeout must be > 0")
	}
	if c.MaxDeliveryElapsed <= 0 {
		return errors.New("source.max-delivery-elapsed must be > 0")
	}
	return c.Reader.Validate()
}
