// internal/lobby/lobby.go
// Derives consistent local room/user/chat state from the server's event
// stream and turns user intent into outbound commands.
package lobby

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lobbyclient/internal/conn"
	"lobbyclient/internal/logger"
	"lobbyclient/internal/protocol"
)

// Connection is the slice of the connection manager the reconciler needs.
type Connection interface {
	Subscribe(kind protocol.EventKind, fn conn.Handler) conn.HandlerID
	Unsubscribe(kind protocol.EventKind, id conn.HandlerID)
	Send(cmd protocol.Command) bool
}

// ChatMessage is one transcript entry. IDs are generated locally and are
// unique within the session only.
type ChatMessage struct {
	ID        string
	Username  string
	Message   string
	Timestamp string
	RoomID    string
}

// RoomAction is the affordance presentation should offer for a room. It is
// informational only; the server stays authoritative on joins.
type RoomAction int

const (
	ActionJoin RoomAction = iota
	ActionLeave
	ActionFull
	ActionUnavailable
)

func (a RoomAction) String() string {
	switch a {
	case ActionJoin:
		return "Join"
	case ActionLeave:
		return "Leave"
	case ActionFull:
		return "Full"
	default:
		return "Unavailable"
	}
}

type subscription struct {
	kind protocol.EventKind
	id   conn.HandlerID
}

// Lobby is the client-side session state. Construct with New, wire with
// Attach, release with Close.
type Lobby struct {
	connection Connection
	log        *logger.Logger

	// OnChange, when set before Attach, is invoked after every state
	// mutation so a UI can re-render. Called without internal locks held.
	OnChange func()

	mu            sync.Mutex
	currentUser   *protocol.User
	currentRoomID string
	rooms         []protocol.Room
	users         []protocol.User
	messages      []ChatMessage
	createPending bool
	subs          []subscription
}

// New returns a detached lobby.
func New(connection Connection, log *logger.Logger) *Lobby {
	if log == nil {
		log = logger.New("lobby")
	}
	return &Lobby{connection: connection, log: log}
}

// Attach subscribes the lobby to the connection's event stream.
func (l *Lobby) Attach() {
	l.subscribe(protocol.EventClose, l.onClose)
	l.subscribe(protocol.EventAuthSuccess, l.onAuthSuccess)
	l.subscribe(protocol.EventRoomUpdate, l.onRoomUpdate)
	l.subscribe(protocol.EventUserUpdate, l.onUserUpdate)
	l.subscribe(protocol.EventChatMessage, l.onChatMessage)
	l.subscribe(protocol.EventRoomCreated, l.onRoomCreated)
	l.subscribe(protocol.EventRoomJoined, l.onRoomJoined)
	l.subscribe(protocol.EventRoomLeft, l.onRoomLeft)
}

// Close removes every subscription. Safe to call more than once.
func (l *Lobby) Close() {
	l.mu.Lock()
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()
	for _, s := range subs {
		l.connection.Unsubscribe(s.kind, s.id)
	}
}

func (l *Lobby) subscribe(kind protocol.EventKind, fn conn.Handler) {
	id := l.connection.Subscribe(kind, fn)
	l.mu.Lock()
	l.subs = append(l.subs, subscription{kind: kind, id: id})
	l.mu.Unlock()
}

func (l *Lobby) notify() {
	if l.OnChange != nil {
		l.OnChange()
	}
}

// --- outbound commands ---

// Login generates a session user ID and sends the auth command. The ID is
// stable for the session only.
func (l *Lobby) Login(username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	userID := "user_" + uuid.NewString()
	return l.connection.Send(protocol.Auth(userID, username))
}

// CreateRoom sends the creation command and marks creation as pending until
// the server acknowledges it.
func (l *Lobby) CreateRoom(name, gameType string) bool {
	if gameType == "" {
		gameType = "Generic"
	}
	if !l.connection.Send(protocol.CreateRoom(name, gameType)) {
		return false
	}
	l.mu.Lock()
	l.createPending = true
	l.mu.Unlock()
	l.notify()
	return true
}

// JoinRoom asks the server to join. Membership changes only once the
// room_joined acknowledgment arrives.
func (l *Lobby) JoinRoom(roomID string) bool {
	return l.connection.Send(protocol.JoinRoom(roomID))
}

// LeaveRoom leaves the current room, if any.
func (l *Lobby) LeaveRoom() bool {
	l.mu.Lock()
	roomID := l.currentRoomID
	l.mu.Unlock()
	if roomID == "" {
		return false
	}
	return l.connection.Send(protocol.LeaveRoom(roomID))
}

// SendChat sends a chat message to the current room. Dropped when no room
// is active or the text is blank.
func (l *Lobby) SendChat(message string) bool {
	message = strings.TrimSpace(message)
	l.mu.Lock()
	roomID := l.currentRoomID
	l.mu.Unlock()
	if roomID == "" || message == "" {
		return false
	}
	return l.connection.Send(protocol.ChatMessage(roomID, message))
}

// RequestRooms asks for a full room snapshot.
func (l *Lobby) RequestRooms() bool { return l.connection.Send(protocol.GetRooms()) }

// RequestUsers asks for a full user snapshot.
func (l *Lobby) RequestUsers() bool { return l.connection.Send(protocol.GetUsers()) }

// --- inbound handlers ---

func (l *Lobby) onClose(conn.Event) {
	l.mu.Lock()
	l.currentUser = nil
	l.currentRoomID = ""
	l.rooms = nil
	l.users = nil
	l.messages = nil
	l.createPending = false
	l.mu.Unlock()
	l.notify()
}

func (l *Lobby) onAuthSuccess(ev conn.Event) {
	p, err := protocol.DecodeAuthSuccess(ev.Frame)
	if err != nil {
		l.log.Warnf("bad auth_success payload: %v", err)
		return
	}
	user := p.User
	l.mu.Lock()
	l.currentUser = &user
	l.mu.Unlock()
	l.log.Infof("authenticated as %s", user.Username)
	l.notify()

	l.RequestRooms()
	l.RequestUsers()
}

func (l *Lobby) onRoomUpdate(ev conn.Event) {
	p, err := protocol.DecodeRoomUpdate(ev.Frame)
	if err != nil {
		l.log.Warnf("bad room_update payload: %v", err)
		return
	}
	l.mu.Lock()
	switch {
	case p.Rooms != nil:
		// Full snapshot replaces the collection in one assignment.
		l.rooms = p.Rooms
	case p.Room != nil:
		l.rooms = upsertRoom(l.rooms, *p.Room)
	}
	l.mu.Unlock()
	l.notify()
}

// upsertRoom replaces the matching entry in place, or appends when the ID
// is new. Entries are never removed here; only a full snapshot drops them.
func upsertRoom(rooms []protocol.Room, room protocol.Room) []protocol.Room {
	for i := range rooms {
		if rooms[i].ID == room.ID {
			rooms[i] = room
			return rooms
		}
	}
	return append(rooms, room)
}

func (l *Lobby) onUserUpdate(ev conn.Event) {
	p, err := protocol.DecodeUserUpdate(ev.Frame)
	if err != nil {
		l.log.Warnf("bad user_update payload: %v", err)
		return
	}
	if p.Users == nil {
		return
	}
	l.mu.Lock()
	l.users = p.Users
	l.mu.Unlock()
	l.notify()
}

func (l *Lobby) onChatMessage(ev conn.Event) {
	p, err := protocol.DecodeChatEvent(ev.Frame)
	if err != nil {
		l.log.Warnf("bad chat_message payload: %v", err)
		return
	}
	msg := ChatMessage{
		ID:        uuid.NewString(),
		Username:  p.Username,
		Message:   p.Message,
		Timestamp: time.Now().Format("15:04:05"),
		RoomID:    p.RoomID,
	}
	l.mu.Lock()
	// Appended regardless of the active room; the transcript filters by
	// room at read time.
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	l.notify()
}

func (l *Lobby) onRoomCreated(ev conn.Event) {
	p, err := protocol.DecodeRoomEvent(ev.Frame)
	if err != nil {
		l.log.Warnf("bad room_created payload: %v", err)
		return
	}
	l.mu.Lock()
	l.createPending = false
	l.mu.Unlock()
	l.log.Infof("room created: %s", p.RoomID)
	l.notify()
	// The acknowledgment carries no room data; fetch the fresh list.
	l.RequestRooms()
}

func (l *Lobby) onRoomJoined(ev conn.Event) {
	p, err := protocol.DecodeRoomEvent(ev.Frame)
	if err != nil {
		l.log.Warnf("bad room_joined payload: %v", err)
		return
	}
	l.mu.Lock()
	l.currentRoomID = p.RoomID
	l.mu.Unlock()
	l.log.Infof("joined room: %s", p.RoomID)
	l.notify()
}

func (l *Lobby) onRoomLeft(ev conn.Event) {
	p, err := protocol.DecodeRoomEvent(ev.Frame)
	if err != nil {
		l.log.Warnf("bad room_left payload: %v", err)
		return
	}
	l.mu.Lock()
	l.currentRoomID = ""
	// Leaving drops the whole buffer, not just the left room's slice of
	// it. Deployed servers rely on this, so it stays.
	l.messages = nil
	l.mu.Unlock()
	l.log.Infof("left room: %s", p.RoomID)
	l.notify()
}

// --- views ---

// CurrentUser returns the authenticated user, or nil.
func (l *Lobby) CurrentUser() *protocol.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentUser == nil {
		return nil
	}
	u := *l.currentUser
	return &u
}

// CurrentRoomID returns the active room ID, or "".
func (l *Lobby) CurrentRoomID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentRoomID
}

// CreatePending reports whether a create_room awaits acknowledgment.
func (l *Lobby) CreatePending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createPending
}

// Rooms returns a copy of the room list in server order.
func (l *Lobby) Rooms() []protocol.Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.Room, len(l.rooms))
	copy(out, l.rooms)
	return out
}

// Room looks a room up by ID.
func (l *Lobby) Room(roomID string) (protocol.Room, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rooms {
		if r.ID == roomID {
			return r, true
		}
	}
	return protocol.Room{}, false
}

// Users returns the user list in presentation order: the session's own
// user first, the rest case-insensitively by username. Recomputed on every
// call so it always reflects the latest membership.
func (l *Lobby) Users() []protocol.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.User, len(l.users))
	copy(out, l.users)
	ownID := ""
	if l.currentUser != nil {
		ownID = l.currentUser.ID
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID == ownID {
			return out[j].ID != ownID
		}
		if out[j].ID == ownID {
			return false
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out
}

// Transcript returns the messages for the active room, in arrival order.
// Empty when no room is active.
func (l *Lobby) Transcript() []ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentRoomID == "" {
		return nil
	}
	var out []ChatMessage
	for _, m := range l.messages {
		if m.RoomID == l.currentRoomID {
			out = append(out, m)
		}
	}
	return out
}

// Action reports which affordance to offer for a room. Eligibility here is
// presentation-only; the server enforces capacity and status.
func (l *Lobby) Action(room protocol.Room) RoomAction {
	l.mu.Lock()
	ownID := ""
	if l.currentUser != nil {
		ownID = l.currentUser.ID
	}
	l.mu.Unlock()

	if ownID != "" && room.HasPlayer(ownID) {
		return ActionLeave
	}
	if room.Status == protocol.RoomWaiting && len(room.Players) < room.MaxPlayers {
		return ActionJoin
	}
	if len(room.Players) >= room.MaxPlayers {
		return ActionFull
	}
	return ActionUnavailable
}
