// Package session stores solve history: each solver run can be recorded
// as a session holding the model text, the engine used, and a summary of
// the outcome, so earlier runs can be listed and re-inspected.
//
// Two backends implement the Store interface:
//   - file: JSON files under the user config directory, for CLI usage
//   - mongo: MongoDB collection, for server deployments
//
// # Usage
//
// Create a store:
//
//	// CLI
//	store, err := session.NewFileStore("")  // Uses ~/.config/pivot/sessions/
//
//	// Server
//	store, err := session.NewMongoStore(ctx, session.MongoOptions{
//	    URI: "mongodb://localhost:27017",
//	})
//
// Record and retrieve runs:
//
//	sess := session.New("diet", modelText, "simplex", "optimal", objective, x)
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//	runs, err := store.List(ctx)
package session

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// MaxList caps the number of sessions returned by Store.List.
const MaxList = 100

// Session is one recorded solver run.
type Session struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	ModelText string `json:"model_text" bson:"model_text"`

	// Engine names the solve path: "simplex", "revised", "bnb" or "cuts".
	Engine string `json:"engine" bson:"engine"`

	// Status is the outcome's status label.
	Status string `json:"status" bson:"status"`

	// Objective is nil when the outcome carries no finite objective
	// (infeasible and truncated runs).
	Objective *float64  `json:"objective,omitempty" bson:"objective,omitempty"`
	X         []float64 `json:"x,omitempty" bson:"x,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any existing record with the same ID.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns up to MaxList sessions, newest first.
	List(ctx context.Context) ([]*Session, error)

	// Close releases backend resources.
	Close() error
}

// New creates a session record with a fresh ID. A non-finite objective is
// stored as absent.
func New(name, modelText, engine, status string, objective float64, x []float64) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		ModelText: modelText,
		Engine:    engine,
		Status:    status,
		X:         x,
		CreatedAt: time.Now().UTC(),
	}
	if !math.IsNaN(objective) && !math.IsInf(objective, 0) {
		s.Objective = &objective
	}
	return s
}
