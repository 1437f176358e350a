package workflow

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryPolicy bounds activity retries. Jitter is deterministic in the
// (plan, activity, attempt) triple so a replayed execution schedules
// the same delays it did before the crash.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryPolicy is used when the configuration leaves retries
// unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Cap:         10 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Backoff returns the delay before the given attempt (1-based) of an
// activity. Attempt 1 has no delay.
func (p RetryPolicy) Backoff(planID, activity string, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	exponent := attempt - 2
	factor := int64(1)
	if exponent > 30 {
		factor = 1 << 30
	} else if exponent > 0 {
		factor = 1 << exponent
	}

	delay := time.Duration(int64(p.Base) * factor)
	if delay > p.Cap || delay < 0 {
		delay = p.Cap
	}
	return delay + p.jitter(planID, activity, attempt)
}

func (p RetryPolicy) jitter(planID, activity string, attempt int) time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	seed := fmt.Sprintf("%s:%s:%d", planID, activity, attempt)
	hash := sha256.Sum256([]byte(seed))
	basis := binary.BigEndian.Uint64(hash[:8])
	return time.Duration(basis % uint64(p.MaxJitter))
}
