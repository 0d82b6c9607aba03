// Package events is the websocket gateway. It relays engine notifications
// from redis pubsub to every connected shell, with a short replay buffer so
// a reconnecting shell can resume without a full refetch.
package events

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/rdb"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type Server struct {
	httpMux *http.ServeMux

	sessions     map[int64]*Session
	sessionMutex sync.Mutex

	nextNonce  int64
	nonceMutex sync.Mutex
}

func NewServer() *Server {
	// Create WebSocket upgrader
	upgrader := websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       func(r *http.Request) bool { return true },
		EnableCompression: true,
	}

	// Create server
	s := Server{
		httpMux:  http.NewServeMux(),
		sessions: make(map[int64]*Session),
	}
	s.httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Get current session or create new session
		var session *Session
		if r.URL.Query().Has("sid") && r.URL.Query().Has("nonce") {
			sid, _ := strconv.ParseInt(r.URL.Query().Get("sid"), 10, 64)
			session = s.getSession(sid)
			if session == nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Session not found."))
				return
			}
		} else {
			session = newSession(&s)
		}

		format := formatJson
		if r.URL.Query().Get("format") == "msgpack" {
			format = formatMsgpack
		}

		// Upgrade connection
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		// Register connection
		err = session.registerConn(conn, format)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Failed registering connection to session."))
			return
		}

		// Re-send missed packets
		if r.URL.Query().Has("sid") && r.URL.Query().Has("nonce") {
			lastNonce, _ := strconv.ParseInt(r.URL.Query().Get("nonce"), 10, 64)
			for _, packet := range session.packets {
				if packet.Nonce > lastNonce {
					session.writeToConn(packet)
				}
			}
		}
	})

	return &s
}

func (s *Server) getNextNonce() int64 {
	s.nonceMutex.Lock()
	defer s.nonceMutex.Unlock()
	nonce := s.nextNonce
	s.nextNonce++
	return nonce
}

func (s *Server) registerSession(session *Session) {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	s.sessions[session.id] = session
}

func (s *Server) getSession(id int64) *Session {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	return s.sessions[id]
}

func (s *Server) removeSession(id int64) {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	delete(s.sessions, id)
}

// broadcast fans a packet out to every session. Every shell mirrors the
// same cache, so there is no per-session routing.
func (s *Server) broadcast(cmd string, val interface{}) error {
	p, err := createPacket(s, cmd, val)
	if err != nil {
		return err
	}

	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	for _, session := range s.sessions {
		if session.ended {
			continue
		}
		select {
		case session.send <- p:
		default:
		}
	}
	return nil
}

func (s *Server) pubSub() error {
	// Create client
	opt, err := redis.ParseURL(os.Getenv("REDIS_URI"))
	if err != nil {
		return err
	}
	client := redis.NewClient(opt)

	// Create ctx
	ctx := context.Background()

	// Create pub/sub channel
	pubsub := client.Subscribe(ctx, rdb.Channel)

	// Listen to incoming pub/sub events
	go func() {
		for msg := range pubsub.Channel() {
			// Parse event; the op code rides as the final byte
			payload := []byte(msg.Payload)
			if len(payload) == 0 {
				continue
			}
			eventType := payload[len(payload)-1]
			payload = payload[:len(payload)-1]

			// Construct and send event
			switch eventType {
			case events.OpPostUpdated:
				var evData events.PostUpdatedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("post_updated", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpMessageCreated:
				var evData events.MessageCreatedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("message_created", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpMessageUpdated:
				var evData events.MessageUpdatedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("message_updated", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpMessageDeleted:
				var evData events.MessageDeletedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("message_deleted", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpConversationUpdated:
				var evData events.ConversationUpdatedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("conversation_updated", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpUnreadCount:
				var evData events.UnreadCountEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("unread_count", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpRetryQueued:
				var evData events.RetryEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("retry_queued", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpRetrySent:
				var evData events.RetryEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("retry_sent", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpFeedRefreshed:
				var evData events.FeedRefreshedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("feed_refreshed", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpProfileRefreshed:
				var evData events.ProfileRefreshedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("profile_refreshed", &evData); err != nil {
					log.Println(err)
					continue
				}

			case events.OpSessionUpdated:
				var evData events.SessionUpdatedEvent
				if err := msgpack.Unmarshal(payload, &evData); err != nil {
					log.Println(err)
					continue
				}
				if err := s.broadcast("session_updated", &evData); err != nil {
					log.Println(err)
					continue
				}
			}
		}
	}()

	return nil
}

func (s *Server) Run(exposeAddr string) error {
	// Start pub/sub
	err := s.pubSub()
	if err != nil {
		return err
	}

	// Start HTTP server
	fmt.Println("Serving events HTTP on", exposeAddr)
	return http.ListenAndServe(exposeAddr, s.httpMux)
}
