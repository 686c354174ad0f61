package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/critiqapp/critiq-sync/internal/store"
	"github.com/critiqapp/critiq-sync/internal/store/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/.critiq/sync")
	}
	driver := strings.ToLower(os.Getenv("STORAGE_DRIVER"))

	var (
		backend store.Backend
		err     error
	)
	switch driver {
	case "sqlite":
		backend, err = sqlite.Open(filepath.Join(dataPath, "interactions.db"), nil)
	default:
		backend, err = store.OpenBadger(filepath.Join(dataPath, "db"), nil)
	}
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	s := store.New(backend, nil)
	defer s.Close()

	ctx := context.Background()

	fmt.Println("=== Store Inspection ===")
	fmt.Println()

	bookmarks, err := s.LoadBookmarks(ctx)
	if err != nil {
		log.Printf("Error reading bookmarks: %v", err)
	}
	fmt.Printf("Bookmarks (%d, newest first):\n", len(bookmarks))
	for i, b := range bookmarks {
		if i >= 20 {
			fmt.Printf("  ... and %d more\n", len(bookmarks)-20)
			break
		}
		fmt.Printf("  %s  %-24s %q by %s\n", b.BookmarkedAt.Format("2006-01-02 15:04"), b.PostID, b.Title, b.AuthorName)
	}
	fmt.Println()

	hidden, err := s.LoadHidden(ctx)
	if err != nil {
		log.Printf("Error reading hidden posts: %v", err)
	}
	reasons := make(map[string]int)
	fmt.Printf("Hidden posts (%d, newest first):\n", len(hidden))
	for i, h := range hidden {
		reasons[string(h.Reason)]++
		if i >= 20 {
			continue
		}
		fmt.Printf("  %s  %-24s %s\n", h.HiddenAt.Format("2006-01-02 15:04"), h.PostID, h.Reason)
	}
	if len(hidden) > 20 {
		fmt.Printf("  ... and %d more\n", len(hidden)-20)
	}

	fmt.Println()
	for _, bucket := range []struct {
		name string
		ids  func(context.Context) ([]string, error)
	}{
		{"Bookmarks", s.Bookmarks.Undecodable},
		{"Hidden", s.Hidden.Undecodable},
	} {
		bad, err := bucket.ids(ctx)
		if err != nil {
			log.Printf("Error scanning %s: %v", strings.ToLower(bucket.name), err)
			continue
		}
		if len(bad) > 0 {
			fmt.Printf("%s entries that no longer decode (%d): %s\n", bucket.name, len(bad), strings.Join(bad, ", "))
		}
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Bookmarks: %d\n", len(bookmarks))
	fmt.Printf("Hidden: %d\n", len(hidden))
	for reason, n := range reasons {
		fmt.Printf("  %s: %d\n", reason, n)
	}
}
