package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClampsProgress(t *testing.T) {
	assert.Equal(t, 100, New(StepCompleted, 130, "", nil).Progress)
	assert.Equal(t, 0, New(StepError, -5, "", nil).Progress)

	ev := New(StepInit, 5, "Configuration du navigateur...", nil)
	assert.Equal(t, TypeProgress, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, TypePublishing, ev.WithType(TypePublishing).Type)
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Multi(a, nil, b, LogSink{})

	sink.Publish("s1", New(StepInit, 5, "init", nil))
	sink.Publish("s1", New(StepLoginCheck, 15, "login", nil))
	sink.Publish("s2", New(StepError, 0, "boom", nil))

	assert.Equal(t, []string{StepInit, StepLoginCheck}, a.Steps("s1"))
	assert.Equal(t, []string{StepInit, StepLoginCheck}, b.Steps("s1"))
	assert.Len(t, a.Events("s2"), 1)
	assert.Empty(t, a.Events("unknown"))
}

func TestHubPublishWithoutConnections(t *testing.T) {
	h := NewHub()
	assert.NotPanics(t, func() {
		h.Publish("nobody", New(StepInit, 5, "init", nil))
	})
	assert.False(t, h.HasConnections("nobody"))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	conn := &Connection{ID: "c1", SessionID: "s1", Send: make(chan []byte, 1)}
	h.Register(conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			h.Publish("s1", New(StepCommentsLoading, 60+i, "loading", nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
	assert.Len(t, conn.Send, 1)

	h.Unregister(conn)
	h.Unregister(conn)
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestHubServeWS(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, strings.TrimPrefix(r.URL.Path, "/ws/"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/s1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return h.HasConnections("s1") }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("ping")))
	var pong Event
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pong))
	assert.Equal(t, TypePing, pong.Type)
	assert.Equal(t, "pong", pong.Data)

	h.Publish("s1", New(StepVideoExtracted, 50, "Informations vidéo extraites", map[string]any{"title": "t"}))
	_, data, err = ws.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, StepVideoExtracted, ev.Step)
	assert.Equal(t, 50, ev.Progress)

	ws.Close()
	assert.Eventually(t, func() bool { return !h.HasConnections("s1") }, 2*time.Second, 10*time.Millisecond)
}
