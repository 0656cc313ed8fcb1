package viewmodel

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/eringen/spacetravelling/content"
)

// Locale holds month abbreviations and interface strings for one language.
type Locale struct {
	Tag      language.Tag
	Months   [12]string
	Loading  string
	LoadMore string
	Previous string
	NotFound string
	Failed   string
	Preview  string
	Minutes  string
}

var locales = []Locale{
	{
		Tag:      language.English,
		Months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		Loading:  "Loading...",
		LoadMore: "Load more posts",
		Previous: "Newer posts",
		NotFound: "Post not found.",
		Failed:   "Something went wrong while generating this page.",
		Preview:  "Preview mode",
		Minutes:  "min",
	},
	{
		Tag:      language.BrazilianPortuguese,
		Months:   [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		Loading:  "Carregando...",
		LoadMore: "Carregar mais posts",
		Previous: "Posts mais recentes",
		NotFound: "Post não encontrado.",
		Failed:   "Algo deu errado ao gerar esta página.",
		Preview:  "Modo de pré-visualização",
		Minutes:  "min",
	},
	{
		Tag:      language.Spanish,
		Months:   [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
		Loading:  "Cargando...",
		LoadMore: "Cargar más publicaciones",
		Previous: "Publicaciones recientes",
		NotFound: "Publicación no encontrada.",
		Failed:   "Algo salió mal al generar esta página.",
		Preview:  "Modo de vista previa",
		Minutes:  "min",
	},
}

var matcher = language.NewMatcher(func() []language.Tag {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = l.Tag
	}
	return tags
}())

// LookupLocale returns the closest supported locale for a BCP 47 tag such as
// "pt-BR". Unknown or empty tags fall back to English.
func LookupLocale(tag string) Locale {
	if tag == "" || tag == "*" {
		return locales[0]
	}
	t, err := language.Parse(tag)
	if err != nil {
		return locales[0]
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return locales[0]
	}
	return locales[idx]
}

// FormatMonthDate formats t as "dd MMM yyyy" with l's month abbreviations.
func (l Locale) FormatMonthDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), l.Months[t.Month()-1], t.Year())
}

// FormatDate parses an ISO-8601 timestamp and formats it as "dd MMM yyyy"
// in loc (UTC when nil) using the given locale.
func FormatDate(ts string, l Locale, loc *time.Location) (string, error) {
	t, err := content.ParseTimestamp(ts)
	if err != nil {
		return "", err
	}
	if loc == nil {
		loc = time.UTC
	}
	return l.FormatMonthDate(t.In(loc)), nil
}
