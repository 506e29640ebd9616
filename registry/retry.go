// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

// RetryingDeletionService wraps a DeletionService and retries requests
// that fail to reach the registry. Rejections are never retried: the
// registry heard the request and refused it, so asking again changes
// nothing.
type RetryingDeletionService struct {
	service   DeletionService
	retryArgs retry.CallArgs
}

// NewRetryingDeletionService wraps the input service in a retry loop
// of the given shape.
func NewRetryingDeletionService(service DeletionService, clk clock.Clock, attempts int, delay time.Duration) *RetryingDeletionService {
	return &RetryingDeletionService{
		service: service,
		retryArgs: retry.CallArgs{
			IsFatalError: fatalRequestError,
			Attempts:     attempts,
			Delay:        delay,
			Clock:        clk,
		},
	}
}

// fatalRequestError reports the errors that stop the retry loop:
// refusals by the registry and cancelled contexts.
func fatalRequestError(err error) bool {
	return IsRejection(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// DeleteDataset implements DeletionService.
func (s *RetryingDeletionService) DeleteDataset(ctx context.Context, id string) error {
	return errors.Trace(s.call(ctx, id, s.service.DeleteDataset))
}

// RetractDataset implements DeletionService.
func (s *RetryingDeletionService) RetractDataset(ctx context.Context, id string) error {
	return errors.Trace(s.call(ctx, id, s.service.RetractDataset))
}

func (s *RetryingDeletionService) call(ctx context.Context, id string, op func(context.Context, string) error) error {
	args := s.retryArgs // a copy

	args.Func = func() error {
		return op(ctx, id)
	}

	var lastErr error
	args.NotifyFunc = func(err error, i int) {
		// Remember the error we're hiding and then retry!
		logger.Debugf("(attempt %d) retrying registry request for %s due to error: %v", i, id, err)
		lastErr = err
	}

	err := retry.Call(args)
	if retry.IsAttemptsExceeded(err) {
		return errors.Annotate(lastErr, "failed after retrying")
	}
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}
