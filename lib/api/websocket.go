package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fosdem/lumen/lib/engine"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(req *http.Request) bool {
		return true
	},
}

const (
	statsInterval = 2 * time.Second
	writeTimeout  = 10 * time.Second
)

type wsClient struct {
	send chan []byte
}

// FeaturesSnapshot is the first message on a new websocket.
type FeaturesSnapshot struct {
	Event    string                `json:"event" example:"features"`
	Features []engine.FeatureState `json:"features"`
}

// @Summary	Open websocket for realtime stats and feature/pipeline events
// @Router		/api/ws [get]
// @Param		Upgrade	header	string	true	"websocket"
// @Tags		base
// @Success	101
func (a *Api) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	var snapshot FeaturesSnapshot
	err := a.submit(req, func(e *engine.Engine) error {
		snapshot = FeaturesSnapshot{Event: "features", Features: e.FeatureStates()}
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	initial, err := json.Marshal(snapshot)
	if err != nil {
		a.fail(w, err)
		return
	}

	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		a.logger.Error(fmt.Sprintf("couldn't make websocket: %s", err))
		return
	}
	defer func(ws *websocket.Conn) {
		err := ws.Close()
		if err != nil {
			a.logger.Debug(fmt.Sprintf("could not close websocket: %s", err))
		}
	}(ws)

	client := &wsClient{send: make(chan []byte, 16)}
	client.send <- initial

	a.wsMutex.Lock()
	a.wsClients[ws] = client
	a.Stats.SetWsClients(len(a.wsClients))
	a.wsMutex.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go a.websocketWriter(ctx, ws, client)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		a.logger.Debug(fmt.Sprintf("received: %s", msg))
	}

	cancel()
	a.wsMutex.Lock()
	delete(a.wsClients, ws)
	a.Stats.SetWsClients(len(a.wsClients))
	a.wsMutex.Unlock()
}

// broadcast queues packet for every client. Clients that fall behind miss it.
func (a *Api) broadcast(packet []byte) {
	a.wsMutex.Lock()
	defer a.wsMutex.Unlock()
	for _, client := range a.wsClients {
		select {
		case client.send <- packet:
		default:
			a.logger.Warn("websocket client is not keeping up, dropping event")
		}
	}
}

// websocketWriter owns all writes to ws: queued events plus periodic stats.
func (a *Api) websocketWriter(ctx context.Context, ws *websocket.Conn, client *wsClient) {
	pingTicker := time.NewTicker(statsInterval)
	defer pingTicker.Stop()

	write := func(packet []byte) bool {
		err := ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err != nil {
			a.logger.Error(fmt.Sprintf("could not set write deadline: %s", err))
			return false
		}
		return ws.WriteMessage(websocket.TextMessage, packet) == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case packet := <-client.send:
			if !write(packet) {
				return
			}
		case <-pingTicker.C:
			packet, err := json.Marshal(a.Stats)
			if err != nil {
				return
			}
			if !write(packet) {
				return
			}
		}
	}
}
