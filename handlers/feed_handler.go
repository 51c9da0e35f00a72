package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/ferreirogomes/harberger/services"

	"github.com/gorilla/websocket"
)

// FeedSource entrega as mudanças aplicadas pela réplica.
type FeedSource interface {
	Subscribe() (<-chan services.Change, func())
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

type FeedHandler struct {
	Feed FeedSource
}

func NewFeedHandler(f FeedSource) *FeedHandler {
	return &FeedHandler{Feed: f}
}

// Stream envia cada mudança da réplica como JSON pelo websocket.
// GET /feed
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Falha ao abrir websocket do feed: %v", err)
		return
	}
	defer conn.Close()

	changes, cancel := h.Feed.Subscribe()
	defer cancel()

	// o cliente não envia nada; a leitura só detecta o fechamento
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "assinante lento"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(c); err != nil {
				log.Printf("Falha ao enviar mudança do feed: %v", err)
				return
			}
		}
	}
}
