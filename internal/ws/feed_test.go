package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mesen-mcp/backend/internal/stream"
)

// dialTestWS stands up a WebSocket endpoint and returns both ends of one
// connection. The caller closes the server and the client conn.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side connection")
		return nil, nil, nil
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func emptyStatus() StatusPayload { return StatusPayload{} }

func TestFeedSendsStatusOnConnect(t *testing.T) {
	f := NewFeed(10*time.Millisecond, time.Hour, 0, emptyStatus)
	defer f.Stop()

	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	c := f.AddClient(serverConn)
	defer f.RemoveClient(c)

	msg := readMessage(t, clientConn)
	if msg.Type != MsgStatus {
		t.Errorf("first message type = %q, want %q", msg.Type, MsgStatus)
	}
}

func TestFeedFlushBatchesRecords(t *testing.T) {
	f := NewFeed(20*time.Millisecond, time.Hour, 0, emptyStatus)
	defer f.Stop()

	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	c := f.AddClient(serverConn)
	defer f.RemoveClient(c)
	readMessage(t, clientConn) // initial status

	// two taps inside one throttle window coalesce into one message
	f.QueueRecords([]stream.Record{{Kind: stream.KindTrace, Seq: 1}, {Kind: stream.KindTrace, Seq: 2}})
	f.QueueRecords([]stream.Record{{Kind: stream.KindMemory, Seq: 3}})

	msg := readMessage(t, clientConn)
	if msg.Type != MsgChanges {
		t.Fatalf("message type = %q, want %q", msg.Type, MsgChanges)
	}
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var changes ChangesPayload
	if err := json.Unmarshal(payload, &changes); err != nil {
		t.Fatal(err)
	}
	if len(changes.Records) != 3 {
		t.Fatalf("batch has %d records, want 3", len(changes.Records))
	}
	if changes.Records[2].Seq != 3 {
		t.Errorf("last record seq = %d, want 3", changes.Records[2].Seq)
	}
}

func TestFeedEmptyQueueNeverFlushes(t *testing.T) {
	f := NewFeed(10*time.Millisecond, time.Hour, 0, emptyStatus)
	defer f.Stop()

	f.QueueRecords(nil)

	f.flushMu.Lock()
	armed := f.flushTimer != nil
	f.flushMu.Unlock()
	if armed {
		t.Error("flush timer armed for an empty batch")
	}
}

func TestFeedClientLimit(t *testing.T) {
	f := NewFeed(10*time.Millisecond, time.Hour, 1, emptyStatus)
	defer f.Stop()

	srv1, serverConn1, clientConn1 := dialTestWS(t)
	defer srv1.Close()
	defer clientConn1.Close()
	srv2, serverConn2, clientConn2 := dialTestWS(t)
	defer srv2.Close()
	defer clientConn2.Close()

	c1 := f.AddClient(serverConn1)
	if c1 == nil {
		t.Fatal("first client rejected")
	}
	defer f.RemoveClient(c1)

	if c2 := f.AddClient(serverConn2); c2 != nil {
		t.Error("second client accepted past the limit")
		f.RemoveClient(c2)
	}
	if got := f.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
}
