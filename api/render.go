package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the dashboard pages. Times are shown in loc.
func Templates(loc *time.Location) (*template.Template, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcs := template.FuncMap{
		"localTime": func(t *time.Time) string {
			if t == nil {
				return "—"
			}
			return t.In(loc).Format("2006-01-02 15:04")
		},
		"count": func(n *int) string {
			if n == nil {
				return "—"
			}
			return strconv.Itoa(*n)
		},
		"shortID": func(id string) string {
			if len(id) > 8 {
				return id[:8]
			}
			return id
		},
	}
	return template.New("ops").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// render adds the values every page needs and writes the named template.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if op, ok := auth.OperatorFromContext(c.Request.Context()); ok {
		data["Operator"] = op.Name()
	}
	if flash := c.Query("flash"); flash != "" {
		data["Flash"] = flash
	}
	data["CSRFToken"] = csrf.Token(c.Request)
	c.HTML(status, name, data)
}

// fail renders err on the error page with the status its kind maps to.
// Unexpected errors are attached to the context for the access log and shown generically.
func fail(c *gin.Context, err error, back string) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "Something went wrong. Try again or check the server logs."
	}
	render(c, status, "error.html", gin.H{"Title": message, "Error": message, "Back": back})
}

func statusFor(err error) int {
	var remote *domain.RemoteError
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrHoldNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStatusChanged):
		return http.StatusConflict
	case errors.As(err, &remote):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// redirect sends the browser to path after a successful action, carrying flash for the next page.
func redirect(c *gin.Context, path, flash string) {
	if flash != "" {
		path += "?flash=" + url.QueryEscape(flash)
	}
	c.Redirect(http.StatusSeeOther, path)
}

func operator(c *gin.Context) auth.Operator {
	op, _ := auth.OperatorFromContext(c.Request.Context())
	return op
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
