package scraper

import "time"

// RetryOptions configures how the client retries transient upstream failures.
type RetryOptions struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry, doubled after each
	MaxDelay   time.Duration // cap for a single delay
}

// DefaultRetryOptions returns the production retry policy: 1s, 2s, 4s... capped at 8s.
func DefaultRetryOptions(maxRetries int) RetryOptions {
	return RetryOptions{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (1-based).
func (o RetryOptions) Backoff(attempt int) time.Duration {
	if attempt < 1 || o.BaseDelay <= 0 {
		return 0
	}
	d := o.BaseDelay << uint(attempt-1)
	if o.MaxDelay > 0 && (d > o.MaxDelay || d <= 0) {
		return o.MaxDelay
	}
	return d
}
