package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/listenupapp/readtrack/internal/domain"
)

// GetPublishedBook returns the book if it exists and is published.
func (s *Store) GetPublishedBook(ctx context.Context, id string) (*domain.Book, error) {
	var book *domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		book, err = s.books.Get(ctx, txn, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("book %s: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting book %s: %w", id, err)
	}
	if !book.Published {
		return nil, fmt.Errorf("book %s is not published: %w", id, ErrBookNotFound)
	}
	return book, nil
}

// GetBooks returns the books found among ids. Missing IDs are skipped.
func (s *Store) GetBooks(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	out := make(map[string]*domain.Book, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			book, err := s.books.Get(ctx, txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("getting book %s: %w", id, err)
			}
			out[id] = book
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategories returns the categories found among ids. Missing IDs are skipped.
func (s *Store) GetCategories(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	out := make(map[string]*domain.Category, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			category, err := s.categories.Get(ctx, txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("getting category %s: %w", id, err)
			}
			out[id] = category
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveBook upserts a book.
func (s *Store) SaveBook(ctx context.Context, book *domain.Book) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.books.Put(ctx, txn, book.ID, book)
	})
}

// SaveCategory upserts a category.
func (s *Store) SaveCategory(ctx context.Context, category *domain.Category) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.categories.Put(ctx, txn, category.ID, category)
	})
}
