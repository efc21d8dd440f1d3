package mover

import "time"

type Config struct {
	// MaxRetries bounds the retries after a conflicting concurrent
	// move; the first attempt is not counted.
	MaxRetries uint64
	// InitialBackoff is the base delay before the first retry; the
	// delay grows exponentially with jitter up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// LockTimeout bounds the wait for the local advisory lock.
	LockTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		LockTimeout:    10 * time.Second,
	}
}
