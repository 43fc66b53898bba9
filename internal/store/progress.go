package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/listenupapp/readtrack/internal/domain"
)

// GetProgress retrieves the progress record for (userID, bookID).
func (t *badgerTx) GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	progress, err := t.store.progress.Get(ctx, t.txn, pairKey(userID, bookID))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("progress %s/%s: %w", userID, bookID, ErrProgressNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting progress %s/%s: %w", userID, bookID, err)
	}
	return progress, nil
}

// SaveProgress upserts the progress record.
func (t *badgerTx) SaveProgress(ctx context.Context, progress *domain.ReadingProgress) error {
	if err := t.store.progress.Put(ctx, t.txn, pairKey(progress.UserID, progress.BookID), progress); err != nil {
		return fmt.Errorf("saving progress %s/%s: %w", progress.UserID, progress.BookID, err)
	}
	return nil
}

// ListUserProgress scans every progress record keyed under userID.
func (t *badgerTx) ListUserProgress(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	records, err := t.store.progress.ScanPrefix(ctx, t.txn, idPart(userID))
	if err != nil {
		return nil, fmt.Errorf("listing progress for user %s: %w", userID, err)
	}
	return records, nil
}
