package service

import (
	"context"
	"errors"

	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
	"github.com/listenupapp/readtrack/internal/store"
)

// translateStoreError maps store errors onto the domain taxonomy.
// op labels the conflict counter.
func translateStoreError(err error, op string) error {
	var domainErr *domainerrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, store.ErrSessionNotFound):
		return domainerrors.NotFound("reading session not found").WithCause(err)
	case errors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFound("book not found").WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("not found").WithCause(err)
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrAlreadyExists):
		metrics.StoreConflicts.WithLabelValues(op).Inc()
		return domainerrors.Conflict("concurrent update, retry the request").WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, op+" failed")
	}
}

// errSessionNotOpen is returned inside transactions when the session is closed
// or owned by someone else. Both cases look like an unknown session to the caller.
var errSessionNotOpen = store.ErrSessionNotFound.WithMessage("no open reading session with that id")
