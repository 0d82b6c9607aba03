// Package session owns the single upstream session this service instance
// acts as: login, resume from storage, token refresh near expiry, logout.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNoSession = errors.New("no active session")
)

// tokens are refreshed this long before their exp claim.
const refreshMargin = 60 * time.Second

// sessionDocID is the _id of the single persisted session document.
const sessionDocID = "current"

type Session struct {
	ID         string `bson:"_id"`
	DID        string `bson:"did"`
	Handle     string `bson:"handle"`
	AccessJWT  string `bson:"access_jwt"`
	RefreshJWT string `bson:"refresh_jwt"`
	UpdatedAt  int64  `bson:"updated_at"`
}

type Manager struct {
	mu      sync.Mutex
	current *Session
	client  *upstream.Client
}

func NewManager() *Manager {
	return &Manager{}
}

// BindUpstream hands the manager its upstream client. Done after client
// construction because the client needs the manager as its token source.
func (m *Manager) BindUpstream(c *upstream.Client) {
	m.client = c
}

// Login creates a fresh upstream session and persists it.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*Session, error) {
	data, err := m.client.CreateSession(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return m.store(ctx, data)
}

// Resume loads the persisted session, if any.
func (m *Manager) Resume(ctx context.Context) error {
	var s Session
	err := db.Sessions.FindOne(ctx, bson.M{"_id": sessionDocID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	log.Println("Resumed session for", s.Handle)
	return nil
}

// Logout drops the session locally and from storage.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	_, err := db.Sessions.DeleteOne(ctx, bson.M{"_id": sessionDocID})
	return err
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// DID implements upstream.TokenSource.
func (m *Manager) DID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.DID
}

// AccessToken implements upstream.TokenSource. The access JWT is refreshed
// through the upstream when it is within the margin of its exp claim.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		return "", ErrNoSession
	}

	if !tokenExpiring(cur.AccessJWT, refreshMargin) {
		return cur.AccessJWT, nil
	}

	data, err := m.client.RefreshSession(ctx, cur.RefreshJWT)
	if err != nil {
		// Hand out the stale token; the upstream call will fail with an
		// auth error if it is truly dead.
		log.Println("session refresh failed:", err)
		return cur.AccessJWT, nil
	}
	s, err := m.store(ctx, data)
	if err != nil {
		return data.AccessJWT, nil
	}
	return s.AccessJWT, nil
}

func (m *Manager) store(ctx context.Context, data upstream.SessionData) (*Session, error) {
	s := &Session{
		ID:         sessionDocID,
		DID:        data.DID,
		Handle:     data.Handle,
		AccessJWT:  data.AccessJWT,
		RefreshJWT: data.RefreshJWT,
		UpdatedAt:  time.Now().UnixMilli(),
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	opts := options.Replace().SetUpsert(true)
	if _, err := db.Sessions.ReplaceOne(ctx, bson.M{"_id": sessionDocID}, s, opts); err != nil {
		return s, err
	}
	return s, nil
}

// tokenExpiring inspects the JWT exp claim without verifying the signature;
// the upstream is the verifier, this is only a refresh heuristic. Tokens
// that cannot be parsed are treated as expiring.
func tokenExpiring(token string, margin time.Duration) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < margin
}
