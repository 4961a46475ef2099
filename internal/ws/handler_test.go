package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/auth"
	"messenger-service/internal/mocks"
)

func dialLiveChannel(t *testing.T, handler *LiveHandler) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSocketSendRejectsEmptyMessage(t *testing.T) {
	hub := NewHub()
	msgRepo := new(mocks.MessageRepositoryMock)
	handler := NewLiveHandler(hub, auth.NewManager("test-secret", time.Hour), msgRepo, 0)

	cases := []struct {
		name    string
		payload string
	}{
		{"no attachment", `{"content":""}`},
		{"blank attachment", `{"content":"","attachment":""}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := dialLiveChannel(t, handler)

			err := conn.WriteJSON(Event{Name: EventSend, Payload: json.RawMessage(tc.payload)})
			require.NoError(t, err)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var reply Event
			require.NoError(t, conn.ReadJSON(&reply))
			assert.Equal(t, EventError, reply.Name)
		})
	}

	msgRepo.AssertNotCalled(t, "Create")
}
