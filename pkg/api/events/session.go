package events

import (
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	formatJson    int8 = 0
	formatMsgpack int8 = 1
)

type Session struct {
	id     int64
	server *Server

	send          chan *Packet
	packets       []*Packet
	lastSeenNonce int64

	conn           *websocket.Conn
	format         int8
	disconnectedAt int64

	ended bool
}

const pingInterval = 45_000 // 45 seconds

type helloVal struct {
	SessionId    string `json:"session_id" msgpack:"session_id"`
	PingInterval int64  `json:"ping_interval" msgpack:"ping_interval"`
}

func newSession(server *Server) *Session {
	// Create & register session
	s := Session{
		id:     server.getNextNonce(),
		server: server,

		send:    make(chan *Packet, 256),
		packets: []*Packet{},
	}
	s.server.registerSession(&s)

	// Write thread
	go func() {
		for packet := range s.send {
			// Make sure to not re-send packets
			if packet.Nonce <= s.lastSeenNonce {
				continue
			} else {
				s.lastSeenNonce = packet.Nonce
			}

			// Add to packets history
			s.packets = append(s.packets, packet)

			// Write message to conn if one exists
			if s.conn != nil {
				s.writeToConn(packet)
			}
		}
	}()

	// Background thread
	go func() {
		for {
			time.Sleep(time.Millisecond * pingInterval)

			// Check for session timeout & remove old packet history
			if s.ended {
				break
			} else if s.conn == nil { // end session if there has been no conn for more than the ping interval
				if s.disconnectedAt < time.Now().Add(-(time.Millisecond * pingInterval)).UnixMilli() {
					s.endSession()
					break
				}
			} else { // remove packets from history that are older than the ping interval
				cutoff := time.Now().Add(-(time.Millisecond * pingInterval)).UnixMilli()
				itemsToRemove := 0
				for _, packet := range s.packets {
					if packet.CreatedAt < cutoff {
						itemsToRemove++
					}
				}
				s.packets = s.packets[itemsToRemove:]
			}
		}
	}()

	return &s
}

func (s *Session) registerConn(conn *websocket.Conn, format int8) error {
	// Close current connection if one exists
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseAbnormalClosure, []byte{})
		err := s.conn.Close()
		if err != nil {
			return err
		}
	}

	// Set conn and format
	s.conn = conn
	s.format = format

	// Read incoming messages until connection ends
	go func() {
		for {
			// Get next message
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.endSession()
				} else {
					conn.Close()
					s.conn = nil
					s.disconnectedAt = time.Now().UnixMilli()
				}
				break
			}
		}
	}()

	// Send hello
	p, err := createPacket(s.server, "hello", &helloVal{
		SessionId:    strconv.FormatInt(s.id, 10),
		PingInterval: pingInterval,
	})
	if err != nil {
		return err
	}
	s.send <- p

	return nil
}

func (s *Session) writeToConn(packet *Packet) {
	if s.conn == nil {
		return
	}

	var err error
	if s.format == formatMsgpack && packet.MsgpackEncoded != nil {
		err = s.conn.WriteMessage(websocket.BinaryMessage, packet.MsgpackEncoded)
	} else {
		err = s.conn.WriteMessage(websocket.TextMessage, packet.JsonEncoded)
	}

	if err != nil {
		s.conn.Close()
	}
}

func (s *Session) endSession() error {
	// Make sure session hasn't already ended
	if s.ended {
		return nil
	}

	// Set ended state
	s.ended = true

	// De-register
	s.server.removeSession(s.id)

	// Close send channel & wipe vars
	close(s.send)
	s.packets = nil

	// Close connection if one exists
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseAbnormalClosure, []byte{})
		s.conn.Close()
		s.conn = nil
	}

	return nil
}
