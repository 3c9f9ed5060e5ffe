package server

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"foodgram/internal/service"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowerReceivesRecipeCreated(t *testing.T) {
	api := newTestAPI(t, nil, withFlags("follower_notifications=on"))
	k := api.stock()
	alice := api.signup("alice")
	bob := api.signup("bob")

	status, _ := api.do(http.MethodPost, pathf("/api/users/%d/subscribe/", alice.ID), nil, bob.Token)
	require.Equal(t, http.StatusCreated, status)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := api.srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, resp, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws?token="+bob.Token, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return api.srv.hub.IsOnline(bob.ID) }, 2*time.Second, 10*time.Millisecond)

	view := api.createRecipe(alice.Token, api.recipePayload("Pancakes",
		[]uint{k.breakfast.ID}, [2]int{int(k.flour.ID), 100}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string                       `json:"type"`
		Payload service.RecipeCreatedPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, service.EventRecipeCreated, event.Type)
	assert.Equal(t, view.ID, event.Payload.Recipe.ID)
	assert.Equal(t, alice.ID, event.Payload.AuthorID)
	assert.Equal(t, "alice", event.Payload.Author)
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	api := newTestAPI(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := api.srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	_, resp, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
