package spacetravelling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/viewmodel"
)

// handlePreview starts a preview session. The CMS calls it with the preview
// ref in "token" and the previewed document in "documentId".
func (a *App) handlePreview(c echo.Context) error {
	ref := c.QueryParam("token")
	if ref == "" {
		return c.String(http.StatusBadRequest, "missing preview token")
	}
	target := "/"
	if id := c.QueryParam("documentId"); id != "" {
		slug, err := a.Site.ResolveSlug(c.Request().Context(), id, content.QueryOptions{Ref: ref})
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				return echo.ErrNotFound
			}
			return err
		}
		target = viewmodel.PostLink(slug)
	}
	if err := setPreviewSession(c, ref); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, target)
}

func handleExitPreview(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}
