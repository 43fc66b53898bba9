package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
)

const bookColumns = `id, title, page_count, published, created_at, updated_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b         domain.Book
		published int
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&b.ID, &b.Title, &b.PageCount, &published, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	b.Published = published != 0
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// GetPublishedBook returns the book if it exists and is published.
func (s *Store) GetPublishedBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := scanBook(s.readDB.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", id, store.ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting book %s: %w", id, err)
	}
	if !book.Published {
		return nil, fmt.Errorf("book %s is not published: %w", id, store.ErrBookNotFound)
	}

	cats, err := s.bookCategories(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	book.CategoryIDs = cats[id]
	return book, nil
}

// GetBooks returns the books found among ids. Missing IDs are skipped.
func (s *Store) GetBooks(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	out := make(map[string]*domain.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("getting books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cats, err := s.bookCategories(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, b := range out {
		b.CategoryIDs = cats[id]
	}
	return out, nil
}

// bookCategories returns category IDs per book in stored order.
func (s *Store) bookCategories(ctx context.Context, bookIDs []string) (map[string][]string, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT book_id, category_id FROM book_categories
		WHERE book_id IN (`+placeholders(len(bookIDs))+`)
		ORDER BY book_id, position`,
		stringArgs(bookIDs)...)
	if err != nil {
		return nil, fmt.Errorf("getting book categories: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var bookID, categoryID string
		if err := rows.Scan(&bookID, &categoryID); err != nil {
			return nil, err
		}
		out[bookID] = append(out[bookID], categoryID)
	}
	return out, rows.Err()
}

// GetCategories returns the categories found among ids. Missing IDs are skipped.
func (s *Store) GetCategories(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	out := make(map[string]*domain.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, name FROM categories WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("getting categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}

// SaveBook upserts a book and replaces its category memberships.
func (s *Store) SaveBook(ctx context.Context, book *domain.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			page_count = excluded.page_count,
			published = excluded.published,
			updated_at = excluded.updated_at`,
		book.ID, book.Title, book.PageCount, boolToInt(book.Published),
		formatTime(book.CreatedAt), formatTime(book.UpdatedAt),
	); err != nil {
		return fmt.Errorf("saving book %s: %w", book.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = ?`, book.ID); err != nil {
		return fmt.Errorf("clearing categories for book %s: %w", book.ID, err)
	}
	for i, categoryID := range book.CategoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_categories (book_id, category_id, position) VALUES (?, ?, ?)`,
			book.ID, categoryID, i,
		); err != nil {
			return fmt.Errorf("linking book %s to category %s: %w", book.ID, categoryID, err)
		}
	}
	return tx.Commit()
}

// SaveCategory upserts a category.
func (s *Store) SaveCategory(ctx context.Context, category *domain.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		category.ID, category.Name)
	if err != nil {
		return fmt.Errorf("saving category %s: %w", category.ID, err)
	}
	return nil
}
