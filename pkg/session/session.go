// Package session persists editor sessions: a named flow document
// (nodes, edges, viewport) with a TTL, identified by a generated id.
//
// Storage backends:
//   - memory: in-process storage for development and tests
//   - file: JSON files in a config directory, for CLI use
//   - redis: shared storage for multi-instance deployments
//   - mongo: durable storage with server-side expiry
//
// # Usage
//
// Create and persist a session from a live store:
//
//	sess := session.New("my diagram", session.DefaultTTL)
//	sess.Capture(st)
//	if err := backend.Set(ctx, sess); err != nil {
//	    return err
//	}
//
// Load it back later:
//
//	sess, err := backend.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	sess.Restore(st)
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session exists but exceeded its TTL.
	ErrExpired = errors.New("session expired")
)

// DefaultTTL is the default session lifetime.
const DefaultTTL = 24 * time.Hour

// Document is the persisted flow content of a session.
type Document struct {
	Nodes    []*flow.Node  `json:"nodes"`
	Edges    []*flow.Edge  `json:"edges"`
	Viewport flow.Viewport `json:"viewport"`
}

// Session is one saved editor state.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates an empty session with a generated id. A ttl of zero means
// DefaultTTL.
func New(name string, ttl time.Duration) *Session {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session exceeded its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Capture copies the store's current graph and viewport into the
// session document and bumps UpdatedAt.
func (s *Session) Capture(st *store.Store) {
	s.Document = Document{
		Nodes:    st.Nodes(),
		Edges:    st.Edges(),
		Viewport: st.Viewport(),
	}
	s.UpdatedAt = time.Now().UTC()
}

// Restore pushes the session document into the store, replacing its
// graph and viewport.
func (s *Session) Restore(st *store.Store) {
	st.SetNodes(s.Document.Nodes)
	st.SetEdges(s.Document.Edges)
	st.SetViewport(s.Document.Viewport)
}

// Store is the interface session backends implement.
type Store interface {
	// Get retrieves a session by id. Returns ErrNotFound for unknown
	// ids and ErrExpired for sessions past their TTL.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores or replaces a session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all live sessions.
	List(ctx context.Context) ([]string, error)

	// Cleanup removes expired sessions. Backends with server-side
	// expiry may no-op.
	Cleanup(ctx context.Context) error
}
