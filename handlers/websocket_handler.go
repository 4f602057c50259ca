package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/goalline/matchday/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Проверка Origin делается CORS-слоем выше; сюда доходят уже
		// отфильтрованные запросы.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs подключает клиента к комнате матча: все MATCH_SYNC и LIVE_ALERT
// кадры этого матча будут приходить в сокет.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту HTTP-ошибкой.
		log.Printf("Failed to upgrade connection for match %d: %v", matchID, err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: live.MatchRoom(matchID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
