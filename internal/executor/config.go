package executor

import (
	"fmt"
	"runtime"
	"strings"
)

// FullPolicy decides what Submit does when a bounded queue has no free slot.
type FullPolicy int

const (
	// Block waits until a slot frees up, the executor shuts down, or the
	// submit context ends.
	Block FullPolicy = iota
	// FailFast rejects the submission with ErrQueueFull.
	FailFast
)

// String returns the string representation of FullPolicy
func (p FullPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case FailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}

// ParseFullPolicy parses the names produced by FullPolicy.String.
func ParseFullPolicy(s string) (FullPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return Block, nil
	case "fail-fast", "failfast", "fail":
		return FailFast, nil
	default:
		return Block, fmt.Errorf("unknown queue full policy %q (expected block or fail-fast)", s)
	}
}

// Config holds the executor sizing.
type Config struct {
	PoolSize      int        // number of workers, at least 1
	QueueCapacity int        // maximum tasks waiting or running, 0 means unbounded
	FullPolicy    FullPolicy // behaviour of Submit on a full bounded queue
}

// DefaultConfig returns one worker per CPU and an unbounded queue.
func DefaultConfig() Config {
	return Config{
		PoolSize:      runtime.NumCPU(),
		QueueCapacity: 0,
		FullPolicy:    Block,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: pool size must be at least 1, got %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must not be negative, got %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.FullPolicy != Block && c.FullPolicy != FailFast {
		return fmt.Errorf("%w: unknown queue full policy %d", ErrInvalidConfig, c.FullPolicy)
	}
	return nil
}

// Bounded reports whether the queue has a capacity limit.
func (c Config) Bounded() bool {
	return c.QueueCapacity > 0
}
