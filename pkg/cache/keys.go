package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyOpts captures every option that changes a solve outcome. Two runs
// with equal model text and equal KeyOpts are interchangeable, so they
// share a cache entry.
type KeyOpts struct {
	Engine        string  `json:"engine"` // "simplex", "revised", "bnb", "cuts"
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	MaxDepth      int     `json:"max_depth,omitempty"`
	MaxNodes      int     `json:"max_nodes,omitempty"`
	MaxCuts       int     `json:"max_cuts,omitempty"`
}

// Keyer generates cache keys for the entry types the solver caches.
type Keyer interface {
	// SolveKey keys a serialized solve outcome by model text and options.
	SolveKey(modelText string, opts KeyOpts) string

	// RenderKey keys a rendered search tree by the solve key it came from
	// and the output format.
	RenderKey(solveKey, format string) string
}

// DefaultKeyer is the standard key scheme: prefix plus SHA-256 over the
// JSON-encoded inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SolveKey generates a key for a solve outcome.
func (k *DefaultKeyer) SolveKey(modelText string, opts KeyOpts) string {
	return hashKey("solve", modelText, opts)
}

// RenderKey generates a key for a rendered search tree.
func (k *DefaultKeyer) RenderKey(solveKey, format string) string {
	return hashKey("render", solveKey, format)
}

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, e.g.
// per-user namespaces when the solver runs behind the HTTP API.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SolveKey generates a prefixed key for a solve outcome.
func (k *ScopedKeyer) SolveKey(modelText string, opts KeyOpts) string {
	return k.prefix + k.inner.SolveKey(modelText, opts)
}

// RenderKey generates a prefixed key for a rendered search tree.
func (k *ScopedKeyer) RenderKey(solveKey, format string) string {
	return k.prefix + k.inner.RenderKey(solveKey, format)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
