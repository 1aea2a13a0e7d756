package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AngelCh415/fakestat/internal/models"
	"github.com/AngelCh415/fakestat/internal/store"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) store.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e store.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	return e
}

func TestHub_SnapshotThenEvents(t *testing.T) {
	st := store.NewMemoryStore()
	st.LoadSample()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), st.List())
	st.Subscribe(hub.Broadcast)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	first := readEvent(t, conn)
	if first.Op != OpSnapshot || len(first.Records) != 2 {
		t.Fatalf("first event = %+v, want snapshot of 2", first)
	}

	st.Create(models.CreateRequest{Name: "NEW", SuccessfulLeads: 1, TotalLeads: 1})
	next := readEvent(t, conn)
	if next.Op != store.OpCreate || len(next.Records) != 3 || next.Records[2].Name != "NEW" {
		t.Fatalf("event = %+v, want create with 3 records", next)
	}
}

func TestHub_ClientRemovedOnClose(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv)
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d after close, want 0", hub.ClientCount())
	}
}

func TestHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	// connected but never reads
	conn := dial(t, srv)
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	records := make([]models.TrafficStat, 1000)
	for i := range records {
		records[i] = models.TrafficStat{ID: i, Name: strings.Repeat("x", 64)}
	}
	e := store.Event{Op: store.OpImport, Records: records}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(e)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked on a client that stopped reading")
	}

	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want slow client dropped", hub.ClientCount())
	}
}

func TestHub_SnapshotTracksLatestEvent(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	hub.Broadcast(store.Event{Op: store.OpCreate, Records: []models.TrafficStat{{ID: 1, Name: "A"}}})

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()

	first := readEvent(t, conn)
	if first.Op != OpSnapshot || len(first.Records) != 1 || first.Records[0].Name != "A" {
		t.Fatalf("first event = %+v, want snapshot with A", first)
	}
}
