package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pantrybook/internal/models"
	"pantrybook/internal/repository"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// wsEvent is the wire shape of a repository event pushed to clients.
type wsEvent struct {
	Event   string                   `json:"event"`
	Recipes []*models.RecipeDocument `json:"recipes,omitempty"`
	Delta   *repository.CacheDelta   `json:"delta,omitempty"`
}

// WSConnection maintains one WebSocket connection and its repository
// subscriptions. done is closed exactly once on teardown so both pumps
// and any in-flight enqueue observe the shutdown.
type WSConnection struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	unsubscribeRecipes func()
	unsubscribeCache   func()
}

// handleWebSocket upgrades the connection and bridges repository events
// onto it until the client goes away.
func (a *RecipeAPI) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("failed to upgrade connection: %v", err)
		return
	}

	ws := &WSConnection{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	ws.unsubscribeRecipes = a.Repo.OnRecipesUpdated(func(recipes []*models.RecipeDocument) {
		ws.enqueue(wsEvent{Event: "recipesUpdated", Recipes: recipes})
	})
	ws.unsubscribeCache = a.Repo.OnCacheUpdated(func(delta repository.CacheDelta) {
		ws.enqueue(wsEvent{Event: "cacheUpdated", Delta: &delta})
	})

	go ws.writePump()
	go ws.readPump()
}

// enqueue marshals an event onto the send queue, dropping it when the
// connection is shutting down or the client cannot keep up.
func (w *WSConnection) enqueue(event wsEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("failed to marshal event: %v", err)
		return
	}
	select {
	case <-w.done:
	case w.send <- payload:
	default:
		log.WithField("event", event.Event).Warn("slow websocket client, dropping event")
	}
}

// writePump drains the send queue onto the connection and pings idle
// clients. It exits on the first failed write or when done closes.
func (w *WSConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.close()
	}()

	for {
		select {
		case payload := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}

// readPump discards client messages and detects disconnects.
func (w *WSConnection) readPump() {
	defer w.close()
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *WSConnection) close() {
	w.once.Do(func() {
		w.unsubscribeRecipes()
		w.unsubscribeCache()
		close(w.done)
		w.conn.Close()
	})
}
