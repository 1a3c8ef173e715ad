package handler

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/internal/document/diff"
	"github.com/jsonstash/jsonstash/internal/document/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Templates parses the HTML pages served by the document routes.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"capitalize": capitalize,
		"lineClass":  lineClass,
	}).ParseFS(templatesFS, "templates/*.html"))
}

type documentHandler struct {
	svc     service.Service
	maxBody int64
}

// RegisterDocumentRoutes mounts the HTML pages, the form endpoints and the
// JSON API on r. The catch-all GET /:key is registered last so static routes
// added by the caller (health, metrics) keep priority.
func RegisterDocumentRoutes(r *gin.Engine, svc service.Service, maxBody int64) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	h := &documentHandler{svc: svc, maxBody: maxBody}
	r.SetHTMLTemplate(Templates())

	api := r.Group("/api/v1")
	api.GET("/documents", h.list)
	api.POST("/documents", h.createJSON)
	api.GET("/documents/:key", h.get)
	api.DELETE("/documents/:key", h.deleteJSON)
	api.GET("/diff", h.diffJSON)

	r.GET("/", h.index)
	r.POST("/post-json", h.postJSON)
	r.POST("/delete-json/:key", h.deleteForm)
	r.POST("/compare", h.compare)
	r.GET("/:key", h.get)
}

type prefixGroup struct {
	Prefix string
	Keys   []string
}

func (h *documentHandler) index(c *gin.Context) {
	ctx := c.Request.Context()
	groups := h.svc.Grouped(ctx)
	view := make([]prefixGroup, 0, len(groups))
	for _, p := range document.SortedPrefixes(groups) {
		view = append(view, prefixGroup{Prefix: p, Keys: groups[p]})
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Keys":   h.svc.Keys(ctx),
		"Groups": view,
	})
}

// postJSON accepts the index form (field json_data) or a raw JSON body.
func (h *documentHandler) postJSON(c *gin.Context) {
	if !isForm(c) {
		h.createJSON(c)
		return
	}
	h.limitBody(c)
	if err := parseForm(c); err != nil {
		if !tooLarge(err, c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		}
		return
	}
	if !c.Request.PostForm.Has("json_data") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), []byte(c.Request.PostForm.Get("json_data"))); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *documentHandler) createJSON(c *gin.Context) {
	h.limitBody(c)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if tooLarge(err, c) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	key, err := h.svc.Create(c.Request.Context(), raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/"+key)
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (h *documentHandler) get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *documentHandler) list(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"keys":   h.svc.Keys(ctx),
		"groups": h.svc.Grouped(ctx),
	})
}

func (h *documentHandler) deleteForm(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("key")); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *documentHandler) deleteJSON(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("key")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *documentHandler) compare(c *gin.Context) {
	h.limitBody(c)
	if err := parseForm(c); err != nil {
		if !tooLarge(err, c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form"})
		}
		return
	}
	a := strings.TrimSpace(c.Request.PostForm.Get("key_a"))
	b := strings.TrimSpace(c.Request.PostForm.Get("key_b"))
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key_a and key_b are required"})
		return
	}
	res, err := h.svc.Diff(c.Request.Context(), a, b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.HTML(http.StatusOK, "diff.html", gin.H{"KeyA": a, "KeyB": b, "Result": res})
}

func (h *documentHandler) diffJSON(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b are required"})
		return
	}
	res, err := h.svc.Diff(c.Request.Context(), a, b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"a":       a,
		"b":       b,
		"equal":   res.Empty(),
		"summary": res.Summary(),
		"changes": res.Changes,
	})
}

func (h *documentHandler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
}

func isForm(c *gin.Context) bool {
	switch c.ContentType() {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return true
	}
	return false
}

func parseForm(c *gin.Context) error {
	if c.ContentType() == "multipart/form-data" {
		return c.Request.ParseMultipartForm(32 << 10)
	}
	return c.Request.ParseForm()
}

func tooLarge(err error, c *gin.Context) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return true
	}
	return false
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, document.ErrInvalidDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
	case errors.Is(err, document.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
	case errors.Is(err, document.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func lineClass(k diff.Kind) string {
	switch k {
	case diff.Added:
		return "diff-add"
	case diff.Removed:
		return "diff-del"
	default:
		return "diff-mod"
	}
}
