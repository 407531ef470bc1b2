package eventbus

import "fmt"

// BacklogCapacity is the number of undelivered events kept per type.
// It does not follow Config.ChannelSize.
const BacklogCapacity = 10

// requestBuffer is the capacity of the publish and subscribe channels.
const requestBuffer = 10

// Config holds sizing hints for the broker's internal containers.
type Config struct {
	// SubscriberCount pre-sizes each type's subscriber list.
	SubscriberCount int
	// ChannelSize pre-sizes each type's backlog queue (capped at BacklogCapacity+1).
	ChannelSize int
}

// DefaultConfig returns the hints used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SubscriberCount: 1,
		ChannelSize:     1024,
	}
}

// Validate rejects non-positive hints.
func (c Config) Validate() error {
	if c.SubscriberCount <= 0 {
		return fmt.Errorf("%w: subscriber count must be positive, got %d", ErrConfigInvalid, c.SubscriberCount)
	}
	if c.ChannelSize <= 0 {
		return fmt.Errorf("%w: channel size must be positive, got %d", ErrConfigInvalid, c.ChannelSize)
	}
	return nil
}

func (c Config) backlogPresize() int {
	return min(c.ChannelSize, BacklogCapacity+1)
}
