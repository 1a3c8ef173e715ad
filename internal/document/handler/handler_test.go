package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/internal/document/keygen"
	"github.com/jsonstash/jsonstash/internal/document/repository"
	"github.com/jsonstash/jsonstash/internal/document/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func fixedKeys() *keygen.Generator {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &keygen.Generator{Now: func() time.Time { return ts }, UTC: true}
}

func newRouter(t *testing.T, repo service.Repository) *gin.Engine {
	t.Helper()
	g := gin.New()
	RegisterDocumentRoutes(g, service.New(repo, service.Options{Keys: fixedKeys()}), 1<<10)
	return g
}

func do(g *gin.Engine, method, target, contentType, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	g.ServeHTTP(w, req)
	return w
}

func postForm(g *gin.Engine, target string, form url.Values) *httptest.ResponseRecorder {
	return do(g, http.MethodPost, target, "application/x-www-form-urlencoded", form.Encode())
}

func TestFormRoundTripOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "routes")
	repo := repository.NewFileRepo(dir, "", repository.LoadFail)
	_, err := repo.Load()
	require.NoError(t, err)
	g := newRouter(t, repo)

	w := postForm(g, "/post-json", url.Values{"json_data": {`{"user": {"name": "Ann"}}`}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
	require.FileExists(t, filepath.Join(dir, "user_20240102_030405.json"))

	w = do(g, http.MethodGet, "/user_20240102_030405", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user": {"name": "Ann"}}`, w.Body.String())

	w = do(g, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/user_20240102_030405"`)
	assert.Contains(t, w.Body.String(), "<h3 class=\"text-lg font-semibold mt-4\">User</h3>")

	w = do(g, http.MethodPost, "/delete-json/user_20240102_030405", "", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.NoFileExists(t, filepath.Join(dir, "user_20240102_030405.json"))

	w = do(g, http.MethodGet, "/user_20240102_030405", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error": "Not found"}`, w.Body.String())

	// deleting again still redirects
	w = do(g, http.MethodPost, "/delete-json/user_20240102_030405", "", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
}

func TestPostJSONRejectsInvalidInput(t *testing.T) {
	g := newRouter(t, repository.NewMemoryRepo())
	for _, in := range []string{`{"a":`, `{}`, `[1]`, `42`} {
		w := postForm(g, "/post-json", url.Values{"json_data": {in}})
		require.Equal(t, http.StatusBadRequest, w.Code, in)
		require.JSONEq(t, `{"error": "Invalid JSON"}`, w.Body.String())
	}

	w := postForm(g, "/post-json", url.Values{"other": {"x"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostJSONBody(t *testing.T) {
	g := newRouter(t, repository.NewMemoryRepo())
	w := do(g, http.MethodPost, "/post-json", "application/json", `{"order": 7}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"key": "order_20240102_030405"}`, w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	g := newRouter(t, repository.NewMemoryRepo())
	big := `{"a": "` + strings.Repeat("x", 2048) + `"}`

	w := do(g, http.MethodPost, "/api/v1/documents", "application/json", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = postForm(g, "/post-json", url.Values{"json_data": {big}})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAPIDocuments(t *testing.T) {
	g := newRouter(t, repository.NewMemoryRepo())

	w := do(g, http.MethodPost, "/api/v1/documents", "application/json", `{"user": "ann", "n": 12345678901234567890}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	key := created["key"]
	require.Equal(t, "user_20240102_030405", key)
	require.Equal(t, "/"+key, w.Header().Get("Location"))

	w = do(g, http.MethodGet, "/api/v1/documents/"+key, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "12345678901234567890", "large numbers keep their digits")

	w = do(g, http.MethodGet, "/api/v1/documents", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"keys": ["user_20240102_030405"], "groups": {"user": ["user_20240102_030405"]}}`, w.Body.String())

	w = do(g, http.MethodDelete, "/api/v1/documents/"+key, "", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodDelete, "/api/v1/documents/"+key, "", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(g, http.MethodGet, "/api/v1/documents/"+key, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodPost, "/api/v1/documents", "application/json", `nope`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidKeyIsBadRequest(t *testing.T) {
	g := newRouter(t, repository.NewMemoryRepo())
	w := do(g, http.MethodGet, "/api/v1/documents/..", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "Invalid key"}`, w.Body.String())
}

func seed(t *testing.T, repo service.Repository, key, raw string) {
	t.Helper()
	doc, err := document.Decode([]byte(raw))
	require.NoError(t, err)
	_, err = repo.Put(key, doc)
	require.NoError(t, err)
}

func TestDiffIgnoresArrayOrder(t *testing.T) {
	repo := repository.NewMemoryRepo()
	seed(t, repo, "X", `{"a":[1,2,3]}`)
	seed(t, repo, "Y", `{"a":[3,2,1]}`)
	g := newRouter(t, repo)

	w := do(g, http.MethodGet, "/api/v1/diff?a=X&b=Y", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Equal   bool              `json:"equal"`
		Changes []json.RawMessage `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.True(t, out.Equal)
	require.Empty(t, out.Changes)

	w = postForm(g, "/compare", url.Values{"key_a": {"X"}, "key_b": {"Y"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "no differences")
}

func TestDiffReportsChanges(t *testing.T) {
	repo := repository.NewMemoryRepo()
	seed(t, repo, "a_1", `{"name": "Ann", "tags": ["x"]}`)
	seed(t, repo, "a_2", `{"name": "Bob", "tags": ["x", "y"], "age": 3}`)
	g := newRouter(t, repo)

	w := do(g, http.MethodGet, "/api/v1/diff?a=a_1&b=a_2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"a": "a_1", "b": "a_2", "equal": false,
		"summary": "2 added, 1 changed",
		"changes": [
			{"path": "$.age", "kind": "added", "old": null, "new": 3},
			{"path": "$.name", "kind": "changed", "old": "Ann", "new": "Bob"},
			{"path": "$.tags[1]", "kind": "added", "old": null, "new": "y"}
		]
	}`, w.Body.String())

	w = postForm(g, "/compare", url.Values{"key_a": {"a_1"}, "key_b": {"a_2"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `class="diff-add"`)
	require.Contains(t, w.Body.String(), "~ $.name: &#34;Ann&#34; -&gt; &#34;Bob&#34;")
}

func TestDiffErrors(t *testing.T) {
	repo := repository.NewMemoryRepo()
	seed(t, repo, "X", `{"a":1}`)
	g := newRouter(t, repo)

	w := do(g, http.MethodGet, "/api/v1/diff?a=X&b=missing", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodGet, "/api/v1/diff?a=X", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(g, "/compare", url.Values{"key_a": {"missing"}, "key_b": {"X"}})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = postForm(g, "/compare", url.Values{"key_a": {"X"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapitalize(t *testing.T) {
	require.Equal(t, "User", capitalize("user"))
	require.Equal(t, "Abc", capitalize("aBC"))
	require.Equal(t, "", capitalize(""))
	require.Equal(t, "Émile", capitalize("émile"))
	require.Equal(t, "Ñandú", capitalize("ñANDÚ"))
	require.Equal(t, "1st", capitalize("1ST"))
}
