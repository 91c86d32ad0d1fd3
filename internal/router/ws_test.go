package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/handlers"
	"github.com/ran-crm/crm/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminWebSocketReceivesRefresh(t *testing.T) {
	api := newTestAPI(t, Options{})
	admin := api.createUser("admin@crm.local", types.RoleAdmin)
	agent := api.createUser("agent@crm.local", types.RoleUser)

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws?token="

	agentToken, err := auth.GenerateJWT(agent)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+agentToken, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken, err := auth.GenerateJWT(admin)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+adminToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg["type"])

	handlers.BroadcastEvent(events.Event{Type: events.ContactCreated})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "refresh", msg["type"])
	assert.Equal(t, events.ContactCreated, msg["event"])
}
