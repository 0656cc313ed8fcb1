// Package logfields keeps slog attribute keys consistent across packages.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeySlug       = "slug"
	KeyKey        = "key"
	KeyKind       = "kind"
	KeyState      = "state"
	KeyTrigger    = "trigger"
	KeyBuildID    = "build_id"
	KeyPages      = "pages"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Slug(s string) slog.Attr     { return slog.String(KeySlug, s) }
func Key(k string) slog.Attr      { return slog.String(KeyKey, k) }
func Kind(k string) slog.Attr     { return slog.String(KeyKind, k) }
func State(s string) slog.Attr    { return slog.String(KeyState, s) }
func Trigger(t string) slog.Attr  { return slog.String(KeyTrigger, t) }
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Pages(n int) slog.Attr       { return slog.Int(KeyPages, n) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr      { return slog.String(KeyURL, u) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
