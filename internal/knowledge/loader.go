package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"traffic-advisor-ai/internal/contextutil"
)

// DocumentExt is the only file extension the loader picks up.
const DocumentExt = ".md"

// maxConcurrentReads bounds the number of files read in parallel.
const maxConcurrentReads = 8

// Document is one source file of the knowledge base.
type Document struct {
	// ID is the file's base name (e.g. "fees.md"). Unique within a directory.
	ID string
	// Title is display metadata; it never affects retrieval.
	Title string
	// Text is the raw file content, unmodified.
	Text string
}

// Loader reads the knowledge-base directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader for the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the directory this loader reads.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads every non-hidden *.md file directly inside the directory (no recursion),
// in sorted file-name order. A missing directory yields an empty set.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	return LoadDocuments(ctx, l.dir)
}

// LoadDocuments reads every *.md file directly inside dir.
//
// A directory that does not exist is treated as an empty knowledge base and
// logged at warn level. A path that exists but is not a directory, or a file
// that cannot be read, is an error.
func LoadDocuments(ctx context.Context, dir string) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "knowledge base directory not found, continuing with empty set", "dir", dir)
			return []Document{}, nil
		}
		return nil, fmt.Errorf("failed to read knowledge base directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != DocumentExt {
			continue
		}
		// Hidden files (editor drafts, ".template.md") are not part of the knowledge base.
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read document %s: %w", path, err)
			}
			docs[i] = Document{
				ID:    name,
				Title: ExtractTitle(content, name),
				Text:  string(content),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "loaded knowledge base documents", "dir", dir, "count", len(docs))
	return docs, nil
}
