package control

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"github.com/yapyap/node/internal/events"
)

// eventHub fans out the router's event sink to every
// connected WebSocket client, dropping rather than blocking on a slow client
// to preserve the sink's non-blocking contract.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan events.Event]struct{}
	log     *logrus.Entry
}

// newEventHub starts pumping source to every subscriber for the
// lifetime of the process.
func newEventHub(source <-chan events.Event, log *logrus.Entry) *eventHub {
	h := &eventHub{clients: make(map[chan events.Event]struct{}), log: log}
	go h.pump(source)
	return h
}

func (h *eventHub) pump(source <-chan events.Event) {
	for e := range source {
		h.mu.Lock()
		for ch := range h.clients {
			select {
			case ch <- e:
			default:
			}
		}
		h.mu.Unlock()
	}
}

func (h *eventHub) subscribe() chan events.Event {
	ch := make(chan events.Event, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan events.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// serveWebSocket handles GET /ws, streaming one JSON-encoded event per
// frame until the client disconnects.
func (h *eventHub) serveWebSocket(c *gin.Context) {
	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		ch := h.subscribe()
		defer h.unsubscribe(ch)
		for e := range ch {
			if err := websocket.JSON.Send(ws, e); err != nil {
				h.log.WithError(err).Debug("websocket send failed, closing")
				return
			}
		}
	}).ServeHTTP(c.Writer, c.Request)
}
