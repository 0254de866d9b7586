package api

import (
	"fmt"
	"strings"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/websocket"
)

// DecodeMessageHandler answers decode requests sent over the WebSocket so a
// browser can decode pasted reports without a round trip per request.
type DecodeMessageHandler struct {
	decoder *decoder.Decoder
}

// NewDecodeMessageHandler creates the handler
func NewDecodeMessageHandler(d *decoder.Decoder) *DecodeMessageHandler {
	return &DecodeMessageHandler{decoder: d}
}

// HandleMessage implements websocket.MessageHandler.
func (h *DecodeMessageHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	if messageType != websocket.MessageTypeDecode {
		client.SendMessage(&websocket.Message{
			Type: websocket.MessageTypeError,
			Data: map[string]any{"error": "unknown message type: " + messageType},
		})
		return fmt.Errorf("unknown message type %q", messageType)
	}

	report, _ := data["report"].(string)
	report = strings.TrimSpace(report)
	if report == "" {
		client.SendMessage(&websocket.Message{
			Type: websocket.MessageTypeError,
			Data: map[string]any{"error": "report is required"},
		})
		return nil
	}

	kind := decoder.DetectKind(report)
	if k, ok := data["kind"].(string); ok && k != "" {
		parsed, err := decoder.ParseKind(k)
		if err != nil {
			client.SendMessage(&websocket.Message{
				Type: websocket.MessageTypeError,
				Data: map[string]any{"error": invalidKindMessage},
			})
			return nil
		}
		kind = parsed
	}

	tokens := h.decoder.Decode(kind, report)
	client.SendMessage(&websocket.Message{
		Type: websocket.MessageTypeDecoded,
		Data: map[string]any{
			"id":       data["id"],
			"kind":     kind,
			"raw":      report,
			"decoded":  tokens,
			"rendered": decoder.Render(tokens),
		},
	})
	return nil
}
