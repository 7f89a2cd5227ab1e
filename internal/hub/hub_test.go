package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(zap.NewNop())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, r))
	readLine(t, r)

	h.Broadcast(map[string]string{"type": "network_loaded"})
	assert.Equal(t, "id: 1", readLine(t, r))
	assert.Equal(t, `data: {"type":"network_loaded"}`, readLine(t, r))
	assert.Equal(t, 1, h.ClientCount())
}

type namedEvent struct {
	Network string `json:"network"`
}

func (namedEvent) EventName() string { return "network_removed" }

func TestNamedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readLine(t, r)
	readLine(t, r)

	h.Broadcast(namedEvent{Network: "Burglary"})
	assert.Equal(t, "id: 1", readLine(t, r))
	assert.Equal(t, "event: network_removed", readLine(t, r))
	assert.Equal(t, `data: {"network":"Burglary"}`, readLine(t, r))
}

func TestReplayAfterLastEventID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	first, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer first.Body.Close()

	r := bufio.NewReader(first.Body)
	readLine(t, r)
	readLine(t, r)
	for i := 1; i <= 3; i++ {
		h.Broadcast(i)
		assert.Equal(t, "id: "+strconv.Itoa(i), readLine(t, r))
		readLine(t, r)
		readLine(t, r)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "1")
	second, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer second.Body.Close()

	r = bufio.NewReader(second.Body)
	assert.Equal(t, ": connected", readLine(t, r))
	readLine(t, r)
	assert.Equal(t, "id: 2", readLine(t, r))
	assert.Equal(t, "data: 2", readLine(t, r))
	readLine(t, r)
	assert.Equal(t, "id: 3", readLine(t, r))
	assert.Equal(t, "data: 3", readLine(t, r))
}

func TestInvalidLastEventID(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Last-Event-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplayKeepsNewest(t *testing.T) {
	h := New(nil)
	h.replay = 2
	for i := 1; i <= 5; i++ {
		msg, err := h.encode(i)
		require.NoError(t, err)
		h.remember(msg)
	}
	require.Len(t, h.history, 2)
	assert.Equal(t, uint64(4), h.history[0].id)
	assert.Equal(t, uint64(5), h.history[1].id)
}

func TestForward(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	events := make(chan int, 2)
	events <- 1
	events <- 2
	close(events)

	Forward(ctx, h, events)
	assert.Len(t, h.broadcast, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
