package cardcatalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/card"
	"github.com/riskibarqy/clan-battles/internal/platform/cache"
)

const catalogKey = "card:catalog"

var imageExtensions = map[string]struct{}{
	".webp": {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Source builds the card catalog from the image files of one directory and
// keeps it for ttl.
type Source struct {
	fsys  fs.FS
	store *cache.Store[card.Catalog]
}

func NewDirSource(dir string, ttl time.Duration) *Source {
	return NewFSSource(os.DirFS(dir), ttl)
}

func NewFSSource(fsys fs.FS, ttl time.Duration) *Source {
	return &Source{
		fsys:  fsys,
		store: cache.NewStore[card.Catalog](ttl),
	}
}

func (s *Source) Catalog(ctx context.Context) (card.Catalog, error) {
	return s.store.GetOrLoad(ctx, catalogKey, s.load)
}

func (s *Source) load(_ context.Context) (card.Catalog, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return card.Catalog{}, fmt.Errorf("read card images dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(path.Ext(entry.Name()))]; !ok {
			continue
		}
		files = append(files, entry.Name())
	}
	return card.CatalogFromFiles(files), nil
}
