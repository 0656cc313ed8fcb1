package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "old.json", `{"uid":"old","type":"posts","lang":"pt-br","first_publication_date":"2020-01-01T10:00:00+0000","data":{"title":"Old"}}`)
	writeFixture(t, dir, "new.json", `{"id":"doc-new","uid":"new","type":"posts","lang":"pt-br","first_publication_date":"2021-03-25T19:25:00+0000","data":{"title":"New"}}`)
	writeFixture(t, dir, "draft.json", `{"uid":"draft","type":"posts","lang":"pt-br","data":{"title":"Draft"}}`)
	writeFixture(t, dir, "english.json", `{"uid":"english","type":"posts","lang":"en-us","first_publication_date":"2022-01-01T00:00:00Z","data":{"title":"English"}}`)
	writeFixture(t, dir, "page.json", `{"uid":"about","type":"page","lang":"pt-br","data":{"title":"About"}}`)
	writeFixture(t, dir, "notes.txt", `ignored`)
	return dir
}

func TestFileSourceSearchOrdersAndFilters(t *testing.T) {
	src := NewFileSource(fixtureDir(t))
	src.Lang = "pt-BR"

	res, err := src.Search(context.Background(), Query{Type: PostType})
	require.NoError(t, err)
	var uids []string
	for _, d := range res.Results {
		uids = append(uids, d.UID)
	}
	assert.Equal(t, []string{"new", "old", "draft"}, uids)
	assert.Equal(t, 1, res.TotalPages)
}

func TestFileSourceSearchPaginates(t *testing.T) {
	src := NewFileSource(fixtureDir(t))

	first, err := src.Search(context.Background(), Query{Type: PostType, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, first.Results, 3)
	assert.Equal(t, 2, first.TotalPages)
	assert.True(t, first.HasNext())

	second, err := src.Search(context.Background(), Query{Type: PostType, PageSize: 3, Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Results, 1)
	assert.False(t, second.HasNext())

	beyond, err := src.Search(context.Background(), Query{Type: PostType, PageSize: 3, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond.Results)
}

func TestFileSourceLookups(t *testing.T) {
	src := NewFileSource(fixtureDir(t))
	ctx := context.Background()

	doc, err := src.ByUID(ctx, PostType, "new", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "New", doc.Data.Title)

	doc, err = src.ByID(ctx, "doc-new", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "new", doc.UID)

	doc, err = src.ByID(ctx, "old", QueryOptions{})
	require.NoError(t, err, "id defaults to the file name")
	assert.Equal(t, "old", doc.UID)

	_, err = src.ByUID(ctx, PostType, "about", QueryOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSourceRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "broken.json", `{"uid":`)
	_, err := NewFileSource(dir).Search(context.Background(), Query{Type: PostType})
	require.Error(t, err)
}

func TestFileSourceWatch(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFixture(t, dir, "a.json", `{"uid":"a"}`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}
	cancel()
	require.NoError(t, <-done)
}
