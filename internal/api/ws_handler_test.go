package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/websocket"
	"github.com/vaahk/wxdecode/pkg/logger"
)

func dialHub(t *testing.T) *gws.Conn {
	t.Helper()
	hub := websocket.NewServer(logger.NewNop())
	hub.SetMessageHandler(NewDecodeMessageHandler(decoder.New(map[string]string{"RJTT": "东京羽田国际机场"})))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *gws.Conn, msg websocket.Message) websocket.Message {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply websocket.Message
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestDecodeOverWebSocket(t *testing.T) {
	conn := dialHub(t)

	reply := roundTrip(t, conn, websocket.Message{
		Type: websocket.MessageTypeDecode,
		Data: map[string]any{"id": "req-1", "report": "METAR RJTT 210800Z 24012KT CAVOK 28/20 Q1010"},
	})
	require.Equal(t, websocket.MessageTypeDecoded, reply.Type)
	assert.Equal(t, "req-1", reply.Data["id"])
	assert.Equal(t, "metar", reply.Data["kind"])

	rendered, ok := reply.Data["rendered"].([]any)
	require.True(t, ok)
	assert.Contains(t, rendered, "机场: 东京羽田国际机场 (RJTT)")
}

func TestDecodeOverWebSocketErrors(t *testing.T) {
	conn := dialHub(t)

	reply := roundTrip(t, conn, websocket.Message{Type: websocket.MessageTypeDecode, Data: map[string]any{}})
	assert.Equal(t, websocket.MessageTypeError, reply.Type)
	assert.Equal(t, "report is required", reply.Data["error"])

	reply = roundTrip(t, conn, websocket.Message{
		Type: websocket.MessageTypeDecode,
		Data: map[string]any{"report": "VHHH", "kind": "sigmet"},
	})
	assert.Equal(t, invalidKindMessage, reply.Data["error"])

	reply = roundTrip(t, conn, websocket.Message{Type: "ping"})
	assert.Equal(t, websocket.MessageTypeError, reply.Type)
	assert.Contains(t, reply.Data["error"], "unknown message type")
}
