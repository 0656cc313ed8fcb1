package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource serves documents from a directory of JSON files, one document
// per file. The directory is read on every call so edits show up on the
// next generation pass.
type FileSource struct {
	Dir  string
	Lang string // default language filter; "" or "*" matches every document
}

// NewFileSource returns a FileSource reading dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) load() ([]Document, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(matches))
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc Document
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if doc.Type == "" {
			doc.Type = PostType
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *FileSource) langMatches(doc Document, lang string) bool {
	if lang == "" {
		lang = s.Lang
	}
	return lang == "" || lang == "*" || strings.EqualFold(doc.Lang, lang)
}

// Search filters by type and language, orders newest first and paginates.
func (s *FileSource) Search(ctx context.Context, q Query) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	var docs []Document
	for _, d := range all {
		if d.Type == q.Type && s.langMatches(d, q.Lang) {
			docs = append(docs, d)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := publishedAt(docs[i]), publishedAt(docs[j])
		if ti.IsZero() != tj.IsZero() {
			return !ti.IsZero()
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return docs[i].UID < docs[j].UID
	})

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	total := len(docs)
	totalPages := (total + size - 1) / size
	from := (page - 1) * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}
	return &SearchResult{
		Page:             page,
		ResultsPerPage:   size,
		ResultsSize:      to - from,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          docs[from:to],
	}, nil
}

// ByUID returns the first document of docType with the given UID.
func (s *FileSource) ByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error) {
	return s.find(ctx, func(d Document) bool {
		return d.Type == docType && d.UID == uid && s.langMatches(d, opts.Lang)
	})
}

// ByID returns the document with the given ID in any language.
func (s *FileSource) ByID(ctx context.Context, id string, _ QueryOptions) (*Document, error) {
	return s.find(ctx, func(d Document) bool { return d.ID == id })
}

func (s *FileSource) find(ctx context.Context, match func(Document) bool) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if match(d) {
			doc := d
			return &doc, nil
		}
	}
	return nil, ErrNotFound
}

// Watch calls onChange after files in the directory change, debounced by
// 250ms. It blocks until ctx is done.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.Dir, err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, onChange)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", s.Dir, err)
		}
	}
}

// publishedAt parses a document's first publication date, zero when absent or invalid.
func publishedAt(d Document) time.Time {
	if d.FirstPublicationDate == nil {
		return time.Time{}
	}
	t, err := ParseTimestamp(strings.TrimSpace(*d.FirstPublicationDate))
	if err != nil {
		return time.Time{}
	}
	return t
}
