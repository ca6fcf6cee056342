package cdp

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdfopts"
)

// fakePageServer answers Page.enable, Page.navigate and Page.printToPDF
// with canned responses and echoes the request ID, standing in for a real
// browser page endpoint.
func fakePageServer(t *testing.T, pdfBody []byte, injectEvent bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		if injectEvent {
			_ = conn.WriteJSON(map[string]any{"method": "Page.loadEventFired", "params": map[string]any{}})
		}

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			resp := map[string]any{"id": req.ID}
			switch req.Method {
			case "Page.enable":
				resp["result"] = map[string]any{}
			case "Page.navigate":
				resp["result"] = map[string]any{"frameId": "F1"}
			case "Page.printToPDF":
				resp["result"] = map[string]any{"data": base64.StdEncoding.EncodeToString(pdfBody)}
			case "Page.fail":
				resp["error"] = map[string]any{"message": "boom"}
			case "Page.drop":
				return // close the connection without replying
			default:
				resp["error"] = map[string]any{"message": "unknown method"}
			}
			_ = conn.WriteJSON(resp)
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestSession_EnableNavigatePrintToPDF(t *testing.T) {
	pdfBytes := []byte("%PDF-1.7 fake body")
	srv := fakePageServer(t, pdfBytes, true)
	defer srv.Close()

	reg := metrics.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := New(ctx, wsURL(srv.URL), nil, reg)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.EnablePage(ctx))

	navCtx, navCancel := context.WithTimeout(context.Background(), navigateSettle+2*time.Second)
	defer navCancel()
	require.NoError(t, sess.Navigate(navCtx, "file:///tmp/input.html"))

	out, err := sess.PrintToPDF(ctx, pdfopts.Default())
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, out)
}

func TestSession_CommandErrorSurfaces(t *testing.T) {
	srv := fakePageServer(t, nil, false)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := New(ctx, wsURL(srv.URL), nil, metrics.New())
	require.NoError(t, err)
	defer sess.Close()

	msg, err := sess.send(ctx, "Page.fail", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Error)
	assert.Equal(t, "boom", errorMessage(msg.Error))
}

func TestSession_CloseFailsPending(t *testing.T) {
	srv := fakePageServer(t, nil, false)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := New(ctx, wsURL(srv.URL), nil, metrics.New())
	require.NoError(t, err)

	// The server drops the connection from under the session while this
	// command is still pending; the pending command must be failed.
	msg, err := sess.send(ctx, "Page.drop", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Error)

	_, err = sess.send(ctx, "Page.enable", nil)
	require.Error(t, err)
}
