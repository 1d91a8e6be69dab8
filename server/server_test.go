package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/store/memstore"
	"github.com/nathoo/wayfarer/store/storetest"
	"github.com/nathoo/wayfarer/types"
)

func newTestStore(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	require.NoError(t, st.SeedCatalog(context.Background(), storetest.Catalog()))
	return st
}

func newTestServer(t *testing.T, st store.Store) (*Server, *httptest.Server) {
	t.Helper()
	eng := engine.New(st, nil, nil)
	eng.RNG = engine.NewRNG(1)
	srv := New(eng, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createAria(t *testing.T, ts *httptest.Server) sessionResponse {
	t.Helper()
	resp, data := do(t, http.MethodPost, ts.URL+"/players", map[string]string{"name": "Aria", "class": "warrior"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var out sessionResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func command(t *testing.T, ts *httptest.Server, id, input string) (int, commandResponse) {
	t.Helper()
	resp, data := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/commands", map[string]string{"input": input})
	var out commandResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	resp, data := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(data))
}

func TestCreatePlayer_OpensSession(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	out := createAria(t, ts)

	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, playerSummary{Name: "Aria", Class: "warrior", Level: 1}, out.Player)
	assert.Contains(t, out.Output, "== Village Square ==")
}

func TestCreatePlayer_Errors(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	createAria(t, ts)

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"bad class", map[string]string{"name": "Bran", "class": "bard"}, http.StatusBadRequest, "Choose a class"},
		{"empty name", map[string]string{"name": " ", "class": "mage"}, http.StatusBadRequest, "name needs"},
		{"taken", map[string]string{"name": "aria", "class": "mage"}, http.StatusConflict, "already a character"},
		{"bad json", "not an object", http.StatusBadRequest, "Invalid request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, ts.URL+"/players", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.Unmarshal(data, &e))
			assert.Contains(t, e.Error, tt.msg)
		})
	}
}

func TestListPlayers(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	createAria(t, ts)

	resp, data := do(t, http.MethodGet, ts.URL+"/players", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var players []playerSummary
	require.NoError(t, json.Unmarshal(data, &players))
	assert.Equal(t, []playerSummary{{Name: "Aria", Class: "warrior", Level: 1}}, players)
}

func TestCommands(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	id := createAria(t, ts).SessionID

	status, out := command(t, ts, id, "status")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, strings.Join(out.Output, "\n"), "Character: Aria (Level 1 warrior)")
	assert.False(t, out.Quit)

	status, out = command(t, ts, id, "menu")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Quit)

	status, _ = command(t, ts, id, "look")
	assert.Equal(t, http.StatusNotFound, status, "quitting closes the session")
}

func TestCommand_UnknownSession(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	status, _ := command(t, ts, "no-such-session", "look")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOpenSession(t *testing.T) {
	srv, ts := newTestServer(t, newTestStore(t))
	first := createAria(t, ts)

	// The player already has a session, so it is resumed.
	resp, data := do(t, http.MethodPost, ts.URL+"/sessions", map[string]string{"name": "ARIA"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again sessionResponse
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, first.SessionID, again.SessionID)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/sessions/"+first.SessionID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, srv.sessions.len())

	resp, data = do(t, http.MethodPost, ts.URL+"/sessions", map[string]string{"name": "aria"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var fresh sessionResponse
	require.NoError(t, json.Unmarshal(data, &fresh))
	assert.NotEqual(t, first.SessionID, fresh.SessionID)
	assert.Contains(t, fresh.Output, "== Village Square ==")

	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions", map[string]string{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/sessions/"+first.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePlayer_ClosesSession(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	id := createAria(t, ts).SessionID

	resp, _ := do(t, http.MethodDelete, ts.URL+"/players/Aria", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	status, _ := command(t, ts, id, "look")
	assert.Equal(t, http.StatusNotFound, status)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/players/Aria", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConcurrentCommands(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	id := createAria(t, ts).SessionID

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], _ = command(t, ts, id, "dance a jig")
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
}

// failingStore accepts new players but refuses every later write.
type failingStore struct {
	*memstore.Store
}

func (failingStore) ApplyPlayer(context.Context, string, store.Mutation) (*types.Player, error) {
	return nil, errors.New("disk full")
}

func TestCommand_PersistenceFailure(t *testing.T) {
	_, ts := newTestServer(t, failingStore{newTestStore(t)})
	id := createAria(t, ts).SessionID

	resp, data := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/commands", map[string]string{"input": "dance a jig"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(data), msgSaveFailed)
	assert.NotContains(t, string(data), "disk full")

	status, out := command(t, ts, id, "status")
	require.Equal(t, http.StatusOK, status, "the session survives a failed save")
	assert.Contains(t, strings.Join(out.Output, "\n"), "Character: Aria")
}

func TestWebSocket(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	id := createAria(t, ts).SessionID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("status")))
	var out commandResponse
	require.NoError(t, conn.ReadJSON(&out))
	assert.Contains(t, strings.Join(out.Output, "\n"), "Character: Aria (Level 1 warrior)")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("quit")))
	require.NoError(t, conn.ReadJSON(&out))
	assert.True(t, out.Quit)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected a normal close, got %v", err)
}

func TestWebSocket_UnknownSession(t *testing.T) {
	_, ts := newTestServer(t, newTestStore(t))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, newTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx, "127.0.0.1:0"))
}
