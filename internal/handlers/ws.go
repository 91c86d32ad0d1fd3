package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/types"
	"github.com/ran-crm/crm/internal/utils"
)

// wsClient serializes writes; gorilla allows one concurrent writer per conn.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteJSON(v)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

var (
	adminClients   = make(map[*wsClient]bool)
	adminClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || types.IsAllowedOrigin(origin)
	},
}

// BroadcastEvent is registered as an events listener and tells every open
// dashboard to refresh.
func BroadcastEvent(ev events.Event) {
	adminClientsMu.RLock()
	if len(adminClients) == 0 {
		adminClientsMu.RUnlock()
		return
	}

	clients := make([]*wsClient, 0, len(adminClients))
	for client := range adminClients {
		clients = append(clients, client)
	}
	adminClientsMu.RUnlock()

	message := map[string]string{
		"type":    "refresh",
		"message": "Dashboard data updated",
		"event":   ev.Type,
	}

	go func() {
		for _, client := range clients {
			if err := client.writeJSON(message); err != nil {
				log.Printf("[Admin] Failed to broadcast refresh to client: %v", err)
				removeAdminClient(client)
			}
		}
	}()
}

func ConnectedAdminClients() int {
	adminClientsMu.RLock()
	defer adminClientsMu.RUnlock()

	return len(adminClients)
}

func removeAdminClient(client *wsClient) {
	adminClientsMu.Lock()
	_, exists := adminClients[client]
	delete(adminClients, client)
	adminClientsMu.Unlock()

	if exists {
		client.conn.Close()
	}
}

func AdminWebSocket(c *gin.Context) {
	user, err := utils.GetCurrentUser(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Admin] WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[Admin] Failed to set initial read deadline: %v", err)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	adminClientsMu.Lock()
	adminClients[client] = true
	adminClientsMu.Unlock()

	defer func() {
		removeAdminClient(client)
		log.Printf("[Admin] WebSocket connection closed for user %d", user.ID)
	}()

	err = client.writeJSON(map[string]string{
		"type":    "connected",
		"message": "WebSocket connection established",
	})

	if err != nil {
		log.Printf("[Admin] Failed to send welcome message: %v", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Admin] WebSocket error for user %d: %v", user.ID, err)
			}
			break
		}
	}
}
