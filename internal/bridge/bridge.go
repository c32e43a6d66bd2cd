// internal/bridge/bridge.go
// Mirrors lobby events onto NATS JetStream so local tooling (recorders,
// stats collectors) can consume them without a second server connection.
// Entirely optional: without a NATS connection every publish is a no-op.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"lobbyclient/internal/conn"
	"lobbyclient/internal/logger"
	"lobbyclient/internal/protocol"
)

const (
	streamName      = "LOBBY"
	streamRetention = 30 * time.Minute
)

// Connection is the event-bus slice of the connection manager.
type Connection interface {
	Subscribe(kind protocol.EventKind, fn conn.Handler) conn.HandlerID
	Unsubscribe(kind protocol.EventKind, id conn.HandlerID)
}

type subscription struct {
	kind protocol.EventKind
	id   conn.HandlerID
}

// Bridge forwards lobby events to JetStream subjects under "lobby.>".
type Bridge struct {
	nc   *nats.Conn
	js   nats.JetStreamContext
	log  *logger.Logger
	subs []subscription
}

// Dial connects to NATS and ensures the LOBBY stream exists. Any failure
// is logged and yields a bridge that publishes nothing, mirroring how the
// server side degrades without NATS.
func Dial(natsURL string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.New("bridge")
	}
	b := &Bridge{log: log}
	if natsURL == "" {
		return b
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Errorf("error connecting to NATS: %v", err)
		log.Warn("running without NATS; event mirroring disabled")
		return b
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Errorf("error getting JetStream context: %v", err)
		nc.Close()
		return b
	}

	streamConfig := &nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"lobby.>"},
		Storage:  nats.FileStorage,
		MaxAge:   streamRetention,
	}
	if _, err := js.StreamInfo(streamName); err != nil {
		if _, err := js.AddStream(streamConfig); err != nil {
			log.Errorf("error creating stream %s: %v", streamName, err)
			nc.Close()
			return b
		}
	} else if _, err := js.UpdateStream(streamConfig); err != nil {
		log.Errorf("error updating stream %s: %v", streamName, err)
	}

	b.nc = nc
	b.js = js
	log.Infof("mirroring lobby events to NATS at %s", natsURL)
	return b
}

// Attach subscribes the bridge to the connection's event stream.
func (b *Bridge) Attach(connection Connection) {
	if b.js == nil {
		return
	}
	kinds := []protocol.EventKind{
		protocol.EventChatMessage,
		protocol.EventRoomCreated,
		protocol.EventRoomJoined,
		protocol.EventRoomLeft,
	}
	for _, kind := range kinds {
		k := kind
		id := connection.Subscribe(k, func(ev conn.Event) { b.mirror(k, ev) })
		b.subs = append(b.subs, subscription{kind: k, id: id})
	}
}

// Detach removes the bridge's subscriptions and closes the NATS
// connection.
func (b *Bridge) Detach(connection Connection) {
	for _, s := range b.subs {
		connection.Unsubscribe(s.kind, s.id)
	}
	b.subs = nil
	if b.nc != nil {
		b.nc.Close()
		b.nc = nil
		b.js = nil
	}
}

func (b *Bridge) mirror(kind protocol.EventKind, ev conn.Event) {
	switch kind {
	case protocol.EventChatMessage:
		p, err := protocol.DecodeChatEvent(ev.Frame)
		if err != nil {
			return
		}
		b.publish(chatSubject(p.RoomID), map[string]interface{}{
			"username":  p.Username,
			"message":   p.Message,
			"roomId":    p.RoomID,
			"timestamp": time.Now().Unix(),
		})
	default:
		p, err := protocol.DecodeRoomEvent(ev.Frame)
		if err != nil {
			return
		}
		b.publish(roomSubject(kind), map[string]interface{}{
			"event":     string(kind),
			"roomId":    p.RoomID,
			"timestamp": time.Now().Unix(),
		})
	}
}

func (b *Bridge) publish(subject string, payload map[string]interface{}) {
	if b.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Errorf("failed to marshal event for %s: %v", subject, err)
		return
	}
	if _, err := b.js.Publish(subject, data); err != nil {
		b.log.Errorf("failed to publish to %s: %v", subject, err)
	}
}

func chatSubject(roomID string) string {
	if roomID == "" {
		roomID = "unknown"
	}
	return fmt.Sprintf("lobby.chat.%s", roomID)
}

func roomSubject(kind protocol.EventKind) string {
	return fmt.Sprintf("lobby.rooms.%s", kind)
}
