package api

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tillpoint/till/internal/sales"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSInitialSnapshot(t *testing.T) {
	svc := &fakeService{snap: sales.Snapshot{Online: true}}
	s := newTestServer(t, svc, nil, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap sales.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if !snap.Online {
		t.Errorf("expected online snapshot, got %+v", snap)
	}
}

// Status changes fire from the submit handlers, the online-event drain and
// the scheduled drain at once, so broadcasts must be safe to call from any
// number of goroutines while a client is connected.
func TestWSConcurrentBroadcasts(t *testing.T) {
	svc := &fakeService{snap: sales.Snapshot{Online: true}}
	s := newTestServer(t, svc, nil, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap sales.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.BroadcastStatus()
		}()
	}
	wg.Wait()

	// Every broadcast must arrive intact; interleaved writes would either
	// panic the server or corrupt a frame here.
	for i := 0; i < n; i++ {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read broadcast %d: %v", i, err)
		}
	}
}
