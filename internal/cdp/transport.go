package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/html2pdf/pool/internal/pdferr"
)

// dialTimeout bounds the initial WebSocket handshake to the page endpoint.
const dialTimeout = 10 * time.Second

// transport owns the single WebSocket connection to one page endpoint.
// gorilla/websocket connections support one concurrent reader and one
// concurrent writer; writes are serialized with writeMu, and reads happen
// exclusively on the dedicated readLoop goroutine started by Session.
type transport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func dial(ctx context.Context, wsURL string) (*transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp: dial %s: %w: %v", wsURL, pdferr.ErrConnectionError, err)
	}
	return &transport{conn: conn}, nil
}

func (t *transport) writeJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *transport) readMessage() (*Message, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("cdp: malformed frame: %w", err)
	}
	return m, nil
}

func (t *transport) close() error {
	return t.conn.Close()
}
