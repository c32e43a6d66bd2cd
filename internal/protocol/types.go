// internal/protocol/types.go
package protocol

import "encoding/json"

// RoomStatus is sent as an integer on the wire.
type RoomStatus int

const (
	RoomWaiting RoomStatus = iota
	RoomInProgress
	RoomFinished
)

func (s RoomStatus) String() string {
	switch s {
	case RoomWaiting:
		return "Waiting"
	case RoomInProgress:
		return "In Progress"
	case RoomFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// User as pushed by the server. CurrentRoom is empty when the user is in
// the lobby.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	CurrentRoom string `json:"currentRoom,omitempty"`
}

// Room as pushed by the server. Players holds user IDs in join order; the
// server guarantees len(Players) <= MaxPlayers, the client only reflects it.
type Room struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	GameType   string     `json:"gameType"`
	Status     RoomStatus `json:"status"`
	Players    []string   `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
}

// HasPlayer reports whether the user is listed in the room.
func (r Room) HasPlayer(userID string) bool {
	for _, id := range r.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// AuthSuccess carries the authenticated user back to the client.
type AuthSuccess struct {
	User User `json:"user"`
}

// RoomUpdate is either a full snapshot (Rooms set) or a single-room upsert
// (Room set). Exactly one of the two is expected per frame.
type RoomUpdate struct {
	Rooms []Room `json:"rooms,omitempty"`
	Room  *Room  `json:"room,omitempty"`
}

// UserUpdate always carries the full user set.
type UserUpdate struct {
	Users []User `json:"users"`
}

// ChatEvent is an inbound chat message for a room.
type ChatEvent struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	RoomID   string `json:"roomId"`
}

// RoomEvent acknowledges room_created, room_joined and room_left.
type RoomEvent struct {
	RoomID string `json:"roomId"`
}

// DecodeAuthSuccess parses an auth_success frame.
func DecodeAuthSuccess(frame []byte) (AuthSuccess, error) {
	var p AuthSuccess
	err := json.Unmarshal(frame, &p)
	return p, err
}

// DecodeRoomUpdate parses a room_update frame.
func DecodeRoomUpdate(frame []byte) (RoomUpdate, error) {
	var p RoomUpdate
	err := json.Unmarshal(frame, &p)
	return p, err
}

// DecodeUserUpdate parses a user_update frame.
func DecodeUserUpdate(frame []byte) (UserUpdate, error) {
	var p UserUpdate
	err := json.Unmarshal(frame, &p)
	return p, err
}

// DecodeChatEvent parses a chat_message frame.
func DecodeChatEvent(frame []byte) (ChatEvent, error) {
	var p ChatEvent
	err := json.Unmarshal(frame, &p)
	return p, err
}

// DecodeRoomEvent parses a room_created/room_joined/room_left frame.
func DecodeRoomEvent(frame []byte) (RoomEvent, error) {
	var p RoomEvent
	err := json.Unmarshal(frame, &p)
	return p, err
}
