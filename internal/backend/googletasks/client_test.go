package googletasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeAPI is a minimal in-memory Google Tasks API.
type fakeAPI struct {
	mu     sync.Mutex
	lists  []map[string]string            // id, title
	tasks  map[string][]map[string]string // listID -> id, title, notes
	nextID int
	calls  int
	status int // if non-zero, every request fails with this status
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tasks: make(map[string][]map[string]string)}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": f.lists})
	})
	mux.HandleFunc("POST /tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		list := map[string]string{"id": f.newID("list"), "title": body["title"]}
		f.lists = append(f.lists, list)
		writeJSON(w, list)
	})
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": f.tasks[r.PathValue("list")]})
	})
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		item := map[string]string{"id": f.newID("task"), "title": body["title"], "notes": body["notes"]}
		listID := r.PathValue("list")
		f.tasks[listID] = append(f.tasks[listID], item)
		writeJSON(w, item)
	})
	mux.HandleFunc("PATCH /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, item := range f.tasks[r.PathValue("list")] {
			if item["id"] == r.PathValue("task") {
				item["notes"] = body["notes"]
				writeJSON(w, item)
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++
		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"code":` + strconv.Itoa(f.status) + `,"message":"denied"}}`))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) newID(prefix string) string {
	f.nextID++
	return prefix + strconv.Itoa(f.nextID)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, api *fakeAPI, listTitle string) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	c, err := NewWithHTTPClient(context.Background(), srv.Client(), listTitle, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestGet_NoList(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "")

	_, found, err := c.Get(context.Background(), "tasks")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, api.lists, "get never creates the list")
}

func TestSet_CreatesListAndTask(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tasks", `[{"id":"1","text":"a","completed":false}]`))

	require.Len(t, api.lists, 1)
	assert.Equal(t, DefaultListTitle, api.lists[0]["title"])
	items := api.tasks[api.lists[0]["id"]]
	require.Len(t, items, 1)
	assert.Equal(t, "tasks", items[0]["title"])

	v, found, err := c.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"1","text":"a","completed":false}]`, v)
}

func TestSet_UpdatesExistingTask(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "Work")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tasks", "[]"))
	require.NoError(t, c.Set(ctx, "tasks", `[{"id":"2","text":"b","completed":true}]`))

	items := api.tasks[api.lists[0]["id"]]
	require.Len(t, items, 1, "second set patches instead of inserting")
	assert.Equal(t, `[{"id":"2","text":"b","completed":true}]`, items[0]["notes"])
}

func TestGet_FindsExistingListFromAnotherClient(t *testing.T) {
	api := newFakeAPI()
	ctx := context.Background()

	writer := newTestClient(t, api, "tasklist")
	require.NoError(t, writer.Set(ctx, "tasks", "[]"))

	reader := newTestClient(t, api, "  TASKLIST ")
	v, found, err := reader.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", v)
}

func TestSet_ValueTooLarge(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "")

	err := c.Set(context.Background(), "tasks", strings.Repeat("x", MaxValueSize+1))
	require.ErrorIs(t, err, ErrValueTooLarge)
	assert.Zero(t, api.calls)
}

func TestAuthError(t *testing.T) {
	api := newFakeAPI()
	api.status = http.StatusUnauthorized
	c := newTestClient(t, api, "")

	_, _, err := c.Get(context.Background(), "tasks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasklist login")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, wrapError(nil))
	assert.EqualError(t, wrapError(assert.AnError), assert.AnError.Error())
}
