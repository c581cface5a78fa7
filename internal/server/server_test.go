package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bookman/internal/activity"
	"bookman/internal/catalog"
	"bookman/internal/db"
	"bookman/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *memoryRecorder) Record(e activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]activity.Entry{e}, r.entries...)
	return nil
}

func (r *memoryRecorder) Recent() ([]activity.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]activity.Entry(nil), r.entries...), nil
}

func newRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database, append([]Option{WithLogOutput(nil)}, opts...)...)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHome(t *testing.T) {
	w := do(newRouter(t), http.MethodGet, "/bookapi/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, banner, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(catalog.RequestIDHeader))
}

func TestCreateAndList(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/bookapi/add", `{"isbn":"978-1","title":"Go","author":"Donovan","price":39.99}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/bookapi/all", "")
	require.Equal(t, http.StatusOK, w.Code)
	var books []model.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	assert.Equal(t, []model.Book{{ISBN: "978-1", Title: "Go", Author: "Donovan", Price: 39.99}}, books)
}

func TestListEmptyIsArray(t *testing.T) {
	w := do(newRouter(t), http.MethodGet, "/bookapi/all", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateRejects(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/bookapi/add", `{"isbn":"978-1","title":"Go","author":"A","price":1}`).Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty isbn", `{"isbn":"  ","title":"T","author":"A","price":1}`, http.StatusBadRequest},
		{"string price", `{"isbn":"2","title":"T","author":"A","price":"1"}`, http.StatusBadRequest},
		{"negative price", `{"isbn":"2","title":"T","author":"A","price":-1}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
		{"duplicate", `{"isbn":"978-1","title":"T","author":"A","price":1}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/bookapi/add", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), "message")
		})
	}
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	r := newRouter(t)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/bookapi/update/nope", `{"title":"T","author":"A","price":1}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/bookapi/delete/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/bookapi/get/nope", "").Code)
}

func TestPreflight(t *testing.T) {
	w := do(newRouter(t), http.MethodOptions, "/bookapi/add", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestActivityLog(t *testing.T) {
	rec := &memoryRecorder{}
	r := newRouter(t, WithRecorder(rec))

	req := httptest.NewRequest(http.MethodGet, "/bookapi/get/x", nil)
	req.Header.Set(catalog.RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := do(r, http.MethodGet, "/bookapi/activity", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []activity.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "/bookapi/get/x", entries[0].Route)
	assert.Equal(t, http.StatusNotFound, entries[0].Status)
}

func TestActivityRouteNeedsRecorder(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, do(newRouter(t), http.MethodGet, "/bookapi/activity", "").Code)
}

// The catalog client and the service agree on the wire contract.
func TestClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newRouter(t))
	t.Cleanup(srv.Close)

	c, err := catalog.NewClient(srv.URL + BasePath)
	require.NoError(t, err)
	ctx := context.Background()

	books, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	created, err := c.Create(ctx, model.Book{ISBN: "978 1/2", Title: "Go", Author: "Donovan", Price: 39.99})
	require.NoError(t, err)
	assert.Equal(t, "978 1/2", created.ISBN)

	updated, err := c.Update(ctx, "978 1/2", model.BookUpdate{Title: "Go 2e", Author: "Donovan", Price: 42})
	require.NoError(t, err)
	assert.Equal(t, model.Book{ISBN: "978 1/2", Title: "Go 2e", Author: "Donovan", Price: 42}, updated)

	got, err := c.GetByKey(ctx, "978 1/2")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = c.Create(ctx, created)
	var te *catalog.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusConflict, te.StatusCode)

	require.NoError(t, c.Remove(ctx, "978 1/2"))

	_, err = c.GetByKey(ctx, "978 1/2")
	assert.True(t, catalog.IsNotFound(err))

	err = c.Remove(ctx, "978 1/2")
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
}
