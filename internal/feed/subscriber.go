package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/model"
)

// Subscriber keeps a WebSocket connection to the backend open and forwards
// change notifications to the engine. The connection is best-effort: polling
// still covers missed events, so reconnects just retry forever.
type Subscriber struct {
	wsURL    string
	apiKey   string
	agentKey string
	log      *logrus.Logger

	// Notify is called on every orders_changed / order_created event.
	Notify func()
}

func NewSubscriber(wsURL, apiKey, agentKey string, log *logrus.Logger, notify func()) *Subscriber {
	return &Subscriber{
		wsURL:    wsURL,
		apiKey:   apiKey,
		agentKey: agentKey,
		log:      log,
		Notify:   notify,
	}
}

// Run connects and reconnects until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) {
	header := http.Header{}
	header.Add("X-Api-Key", s.apiKey)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, header)
		if err != nil {
			s.log.WithError(err).Warn("WebSocket connection failed. Retrying in 5s...")
			if !s.sleep(ctx, 5*time.Second) {
				return
			}
			continue
		}

		s.log.Info("WebSocket connected.")
		s.handleConnection(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.log.Info("WebSocket disconnected. Reconnecting in 5s...")
		if !s.sleep(ctx, 5*time.Second) {
			return
		}
	}
}

func (s *Subscriber) handleConnection(ctx context.Context, conn *websocket.Conn) {
	regMsg := model.WSMessage{
		Type:     model.MessageTypeRegister,
		AgentKey: s.agentKey,
	}
	if err := conn.WriteJSON(regMsg); err != nil {
		s.log.WithError(err).Error("Failed to send register message")
		return
	}

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg model.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		switch msg.Type {
		case model.MessageTypeRegistered:
			s.log.Info("Registered with backend.")

		case model.MessageTypePing:
			conn.WriteJSON(model.WSMessage{Type: model.MessageTypePong, AgentKey: s.agentKey})

		case model.MessageTypeOrdersChanged, model.MessageTypeOrderCreated:
			s.log.WithField("type", msg.Type).Debug("Change notification received")
			if s.Notify != nil {
				s.Notify()
			}

		default:
			s.log.WithField("type", msg.Type).Debug("Ignoring unknown message type")
		}
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
