package remote

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryTimeouts runs op, retrying transient timeouts with exponential backoff
// until cfg.RetryMaxElapsedSec is exhausted. Any other error aborts
// immediately: a bad status or malformed body indicates a request or auth
// problem retries cannot fix.
func retryTimeouts(ctx context.Context, cfg Config, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(cfg.RetryInitialMS) * time.Millisecond
	bo.MaxElapsedTime = time.Duration(cfg.RetryMaxElapsedSec) * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTimeout(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// isTimeout reports whether err is a transient timeout worth retrying.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
