// internal/protocol/protocol_test.go
package protocol

import (
	"encoding/json"
	"testing"
)

func TestCommandsAreDoubleEncoded(t *testing.T) {
	cmd := ChatMessage("r1", "hi there")
	raw, err := json.Marshal(cmd)
	if err != nil {
		t.Fatal(err)
	}

	// The outer envelope holds data as a plain string.
	var envelope struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("envelope shape: %v", err)
	}
	if envelope.Type != "chat_message" {
		t.Fatalf("type = %q", envelope.Type)
	}

	// That string decodes to the command fields in a second pass.
	var fields map[string]string
	if err := json.Unmarshal([]byte(envelope.Data), &fields); err != nil {
		t.Fatalf("inner payload: %v", err)
	}
	if fields["roomId"] != "r1" || fields["message"] != "hi there" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestQueryCommandsOmitData(t *testing.T) {
	for _, cmd := range []Command{GetRooms(), GetUsers()} {
		raw, err := json.Marshal(cmd)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatal(err)
		}
		if _, ok := doc["data"]; ok {
			t.Fatalf("%s should not carry a data field: %s", cmd.Type, raw)
		}
	}
}

func TestPeekType(t *testing.T) {
	kind, err := PeekType([]byte(`{"type":"room_joined","roomId":"r1"}`))
	if err != nil || kind != EventRoomJoined {
		t.Fatalf("kind = %q, err = %v", kind, err)
	}

	kind, err = PeekType([]byte(`{"roomId":"r1"}`))
	if err != nil || kind != "" {
		t.Fatalf("missing type should yield empty kind, got %q, err %v", kind, err)
	}

	if _, err := PeekType([]byte("{broken")); err == nil {
		t.Fatal("malformed frame should fail to decode")
	}
}

func TestRoomStatusStrings(t *testing.T) {
	cases := map[RoomStatus]string{
		RoomWaiting:    "Waiting",
		RoomInProgress: "In Progress",
		RoomFinished:   "Finished",
		RoomStatus(7):  "Unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}

func TestDecodeRoomUpdateVariants(t *testing.T) {
	full, err := DecodeRoomUpdate([]byte(`{"type":"room_update","rooms":[{"id":"r1","name":"Alpha","gameType":"Generic","status":1,"players":["u1"],"maxPlayers":4}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(full.Rooms) != 1 || full.Room != nil {
		t.Fatalf("full = %+v", full)
	}
	if full.Rooms[0].Status != RoomInProgress {
		t.Fatalf("status = %v", full.Rooms[0].Status)
	}

	partial, err := DecodeRoomUpdate([]byte(`{"type":"room_update","room":{"id":"r2","name":"Beta","gameType":"Puzzle","status":0,"players":[],"maxPlayers":2}}`))
	if err != nil {
		t.Fatal(err)
	}
	if partial.Room == nil || partial.Rooms != nil {
		t.Fatalf("partial = %+v", partial)
	}
}

func TestRoomHasPlayer(t *testing.T) {
	r := Room{Players: []string{"u1", "u2"}}
	if !r.HasPlayer("u2") || r.HasPlayer("u3") {
		t.Fatalf("membership checks wrong for %v", r.Players)
	}
}
