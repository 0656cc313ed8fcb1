package spacetravelling

import (
	"github.com/labstack/echo/v4"
)

// RenderPage writes a generated page with its stored content type.
func RenderPage(c echo.Context, code int, p Page) error {
	contentType := p.ContentType
	if contentType == "" {
		contentType = echo.MIMETextHTMLCharsetUTF8
	}
	return c.Blob(code, contentType, p.Body)
}
