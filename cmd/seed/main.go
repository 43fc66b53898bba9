// Package main provides a tool to seed the catalog and sample reading activity.
//
// Books and categories come from a JSON file; reading sessions, book views and
// progress are generated for an optional demo user so the dashboards have data.
//
// Usage:
//
//	go run ./cmd/seed -data-path ~/ReadTrack/data -catalog catalog.json
//	go run ./cmd/seed -data-path ~/ReadTrack/data -demo-user usr-demo  # Also create activity and print a token
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/listenupapp/readtrack/internal/auth"
	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/id"
	"github.com/listenupapp/readtrack/internal/search"
	"github.com/listenupapp/readtrack/internal/store"
	"github.com/listenupapp/readtrack/internal/store/sqlite"
)

var (
	driver      = flag.String("driver", config.DriverBadger, "Store backend (badger, sqlite)")
	dataPath    = flag.String("data-path", os.ExpandEnv("$HOME/ReadTrack/data"), "Base path for databases and keys")
	catalogPath = flag.String("catalog", "", "JSON file with categories and books (built-in sample when empty)")
	demoUser    = flag.String("demo-user", "", "Generate reading activity for this user ID")
	days        = flag.Int("days", 14, "Days of activity to generate for the demo user")
)

// catalogFile is the seed file layout.
type catalogFile struct {
	Categories []*domain.Category `json:"categories"`
	Books      []*domain.Book     `json:"books"`
}

func main() {
	flag.Parse()

	fmt.Printf("Opening %s store under: %s\n", *driver, *dataPath)

	s, err := openBackend(*driver, *dataPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	now := time.Now()
	for _, c := range catalog.Categories {
		if err := s.SaveCategory(ctx, c); err != nil {
			log.Fatalf("Failed to save category %s: %v", c.ID, err)
		}
	}
	for _, b := range catalog.Books {
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
		if err := s.SaveBook(ctx, b); err != nil {
			log.Fatalf("Failed to save book %s: %v", b.ID, err)
		}
	}
	fmt.Printf("Saved %d categories and %d books\n", len(catalog.Categories), len(catalog.Books))

	if *demoUser == "" {
		fmt.Println("\nSeeding complete!")
		return
	}

	views, err := search.NewViewLog(search.Options{DataPath: *dataPath})
	if err != nil {
		log.Fatalf("Failed to open book view log: %v", err)
	}
	defer views.Close()

	sessions, err := seedActivity(ctx, s, views, *demoUser, catalog.Books, *days, now)
	if err != nil {
		log.Fatalf("Failed to seed activity: %v", err)
	}
	fmt.Printf("Created %d reading sessions for %s\n", sessions, *demoUser)

	key, err := auth.LoadOrGenerateKey(*dataPath)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}
	token, err := tokens.Issue(*demoUser)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("\nBearer token (24h):\n%s\n", token)
	fmt.Println("\nSeeding complete!")
}

func openBackend(driver, dataPath string) (store.Backend, error) {
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		return nil, err
	}
	if driver == config.DriverSQLite {
		return sqlite.Open(filepath.Join(dataPath, "readtrack.db"), nil)
	}
	return store.New(filepath.Join(dataPath, "db"), nil)
}

func loadCatalog(path string) (*catalogFile, error) {
	if path == "" {
		return sampleCatalog(), nil
	}
	//#nosec G304 -- seed tool reads an operator supplied path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c catalogFile
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// seedActivity creates closed sessions over the past days, a book view for
// each and a matching progress record per book. Today and yesterday always get a session so the
// demo user has an active streak.
func seedActivity(ctx context.Context, s store.ReadingStore, views *search.ViewLog, userID string, books []*domain.Book, days int, now time.Time) (int, error) {
	var published []*domain.Book
	for _, b := range books {
		if b.Published {
			published = append(published, b)
		}
	}
	if len(published) == 0 {
		return 0, fmt.Errorf("no published books to read")
	}

	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0)) //nolint:gosec // sample data
	pages := make(map[string]int)
	created := 0

	for day := days - 1; day >= 0; day-- {
		if day > 1 && rng.Float32() > 0.8 {
			continue
		}

		for range 1 + rng.IntN(2) {
			book := published[rng.IntN(len(published))]

			start := time.Date(now.Year(), now.Month(), now.Day()-day, 6+rng.IntN(15), rng.IntN(60), 0, 0, time.Local)
			duration := time.Duration(5+rng.IntN(40)) * time.Minute
			read := 3 + rng.IntN(25)
			if book.HasPageCount() {
				read = min(read, max(0, book.PageCount-pages[book.ID]))
			}
			pages[book.ID] += read

			session := domain.NewReadingSession(id.MustGenerate("rs"), userID, book.ID, start)
			session.PagesRead = read
			session.Close(start.Add(duration))

			err := s.Update(ctx, func(tx store.Tx) error {
				if err := tx.CreateSession(ctx, session); err != nil {
					return err
				}

				progress, err := tx.GetProgress(ctx, userID, book.ID)
				if err != nil {
					progress = domain.NewReadingProgress(userID, book.ID, start)
				}
				progress.CurrentPage = pages[book.ID]
				progress.TotalTimeSeconds += session.DurationSeconds
				progress.LastOpenedAt = *session.EndedAt
				progress.UpdatedAt = *session.EndedAt
				if percent, ok := domain.PercentFromPage(progress.CurrentPage, book.PageCount); ok {
					progress.SetPercent(percent)
				}
				return tx.SaveProgress(ctx, progress)
			})
			if err != nil {
				return created, err
			}
			if _, err := views.Record(ctx, domain.BookView{UserID: userID, BookID: book.ID, ViewedAt: start}); err != nil {
				return created, fmt.Errorf("record view: %w", err)
			}
			created++
		}
	}
	return created, nil
}

func sampleCatalog() *catalogFile {
	return &catalogFile{
		Categories: []*domain.Category{
			{ID: "cat-fantasy", Name: "Fantasy"},
			{ID: "cat-scifi", Name: "Science Fiction"},
			{ID: "cat-classics", Name: "Classics"},
		},
		Books: []*domain.Book{
			{ID: "book-hobbit", Title: "The Hobbit", PageCount: 310, CategoryIDs: []string{"cat-fantasy", "cat-classics"}, Published: true},
			{ID: "book-dune", Title: "Dune", PageCount: 412, CategoryIDs: []string{"cat-scifi"}, Published: true},
			{ID: "book-foundation", Title: "Foundation", PageCount: 255, CategoryIDs: []string{"cat-scifi", "cat-classics"}, Published: true},
			{ID: "book-earthsea", Title: "A Wizard of Earthsea", PageCount: 183, CategoryIDs: []string{"cat-fantasy"}, Published: true},
			{ID: "book-draft", Title: "Untitled Draft", CategoryIDs: []string{"cat-fantasy"}, Published: false},
		},
	}
}
