package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/attraddr/attraddr-go/internal/services/pubsub"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
}

// event is one websocket notification frame.
type event struct {
	Topic   pubsub.Topic `json:"topic"`
	Payload interface{}  `json:"payload"`
}

// handleWebsocket streams pubsub notifications to a client. The topics query
// parameter selects a comma-separated subset; with no parameter the client
// receives every topic.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "notifications unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	topics := requestedTopics(r.URL.Query().Get("topics"))
	merged := make(chan event, 64)
	done := make(chan struct{})

	var subs []*pubsub.Subscriber
	for _, topic := range topics {
		sub := s.bus.Subscribe(topic, "", 16)
		subs = append(subs, sub)
		go func(topic pubsub.Topic, sub *pubsub.Subscriber) {
			for msg := range sub.Channel {
				select {
				case merged <- event{Topic: topic, Payload: msg}:
				case <-done:
					return
				}
			}
		}(topic, sub)
	}
	defer func() {
		close(done)
		for _, sub := range subs {
			s.bus.Unsubscribe(sub)
		}
	}()

	// Reader loop only watches for the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-merged:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func allTopics() []pubsub.Topic {
	return []pubsub.Topic{
		pubsub.TopicFixturesUpdated,
		pubsub.TopicProfilesLoaded,
		pubsub.TopicMatchesUpdated,
		pubsub.TopicAddressesUpdated,
		pubsub.TopicSequencesUpdated,
		pubsub.TopicExportCompleted,
	}
}

func requestedTopics(raw string) []pubsub.Topic {
	if raw == "" {
		return allTopics()
	}
	known := make(map[pubsub.Topic]bool)
	for _, t := range allTopics() {
		known[t] = true
	}
	var out []pubsub.Topic
	for _, part := range strings.Split(raw, ",") {
		topic := pubsub.Topic(strings.ToUpper(strings.TrimSpace(part)))
		if known[topic] {
			out = append(out, topic)
		}
	}
	if len(out) == 0 {
		return allTopics()
	}
	return out
}
