// internal/protocol/protocol.go
// Contains the wire-level data structures exchanged with the lobby server:
// the {type, data} envelope, outbound commands, and inbound payloads.
package protocol

import "encoding/json"

// EventKind identifies a dispatchable event. The set is closed: transport
// lifecycle events, the generic "message" event, every server message type,
// and the synthetic reconnect-exhaustion event.
type EventKind string

const (
	// Transport lifecycle events.
	EventOpen  EventKind = "open"
	EventClose EventKind = "close"
	EventError EventKind = "error"

	// EventMessage fires for every decoded inbound frame, before the
	// frame's typed event.
	EventMessage EventKind = "message"

	// Server message types.
	EventAuthSuccess EventKind = "auth_success"
	EventRoomUpdate  EventKind = "room_update"
	EventUserUpdate  EventKind = "user_update"
	EventChatMessage EventKind = "chat_message"
	EventRoomCreated EventKind = "room_created"
	EventRoomJoined  EventKind = "room_joined"
	EventRoomLeft    EventKind = "room_left"

	// EventMaxReconnectAttemptsReached is emitted locally once the
	// reconnect budget is spent. It never appears on the wire.
	EventMaxReconnectAttemptsReached EventKind = "max_reconnect_attempts_reached"
)

// Command is the outbound envelope. Data carries a JSON-encoded string, not
// a nested object; the server parses it in a second pass, so the double
// encoding must be preserved byte-for-byte.
type Command struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

func encode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Auth builds the authentication command.
func Auth(userID, username string) Command {
	return Command{Type: "auth", Data: encode(map[string]string{
		"userId":   userID,
		"username": username,
	})}
}

// CreateRoom builds the room creation command.
func CreateRoom(name, gameType string) Command {
	return Command{Type: "create_room", Data: encode(map[string]string{
		"name":     name,
		"gameType": gameType,
	})}
}

// JoinRoom builds the join command.
func JoinRoom(roomID string) Command {
	return Command{Type: "join_room", Data: encode(map[string]string{
		"roomId": roomID,
	})}
}

// LeaveRoom builds the leave command.
func LeaveRoom(roomID string) Command {
	return Command{Type: "leave_room", Data: encode(map[string]string{
		"roomId": roomID,
	})}
}

// ChatMessage builds the chat command for a room.
func ChatMessage(roomID, message string) Command {
	return Command{Type: "chat_message", Data: encode(map[string]string{
		"roomId":  roomID,
		"message": message,
	})}
}

// GetRooms requests a full room list. Carries no data.
func GetRooms() Command { return Command{Type: "get_rooms"} }

// GetUsers requests a full user list. Carries no data.
func GetUsers() Command { return Command{Type: "get_users"} }

// PeekType extracts the type discriminator from a raw inbound frame.
// The rest of the frame is left for the typed payload structs.
func PeekType(frame []byte) (EventKind, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return "", err
	}
	return EventKind(probe.Type), nil
}
