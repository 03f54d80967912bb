package ws

import (
	"encoding/json"
	"log"
)

// Message names on the room channel. Client->server and server->client
// halves are distinct: broadcasts arrive as client-broadcast/client-volatile
// and are relayed out as their server-* counterparts.
const (
	// Server -> client
	MsgInitRoom        = "init-room"
	MsgRoomUserChange  = "room-user-change"
	MsgNewUser         = "new-user"
	MsgServerBroadcast = "server-broadcast"
	MsgServerVolatile  = "server-volatile-broadcast"

	// Client -> server
	MsgJoinRoom        = "join-room"
	MsgClientBroadcast = "client-broadcast"
	MsgClientVolatile  = "client-volatile"

	// Both directions, relayed process-wide
	MsgUserFollowChange = "user-follow-change"
)

// Envelope is one JSON text frame on the room channel. Data carries relay
// payloads verbatim; the coordinator never inspects them.
type Envelope struct {
	Type         string          `json:"type"`
	RoomID       string          `json:"roomId,omitempty"`
	Members      []string        `json:"members,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// encode frames an envelope for the wire. Marshal can only fail on a relay
// whose Data is not valid JSON; the frame is logged and discarded rather
// than sent out empty.
func encode(env Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to encode %s envelope: %v", env.Type, err)
		return nil
	}
	return data
}
