// Package store abstracts the document store behind the small surface the
// rest of the service needs: point reads and writes, an idempotent
// array-union append, equality/containment queries and change
// subscriptions. Two implementations exist: Mongo for production and Memory
// for tests and tooling.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned by Get when no document exists under the given id,
// and by Update/AppendUnique when the target document is missing. Callers on
// the read path treat it as data, not as a failure.
var ErrNotFound = errors.New("document not found")

// ServerTimestamp is a sentinel field value. The store replaces it with the
// write-time instant when the document is committed, so all timestamps come
// from one clock rather than from each caller.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Query operators.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

// CancelFunc tears down a subscription. Implementations guarantee that
// calling it more than once is a safe no-op.
type CancelFunc func()

// Target names what a subscription watches: a single document (ID set) or
// every document in a collection matching a field predicate (ID empty).
type Target struct {
	Collection string
	ID         string
	Field      string
	Op         string
	Value      interface{}
}

// Doc targets one document.
func Doc(collection, id string) Target {
	return Target{Collection: collection, ID: id}
}

// Matching targets all documents in a collection satisfying field <op> value.
func Matching(collection, field, op string, value interface{}) Target {
	return Target{Collection: collection, Field: field, Op: op, Value: value}
}

// Store is the document store consumed by the service. Writes are eventually
// visible to subsequent reads; AppendUnique is safe under concurrent callers.
type Store interface {
	// Get decodes the document at collection/id into out.
	Get(ctx context.Context, collection, id string, out interface{}) error
	// Set writes the full document at collection/id, creating it if absent.
	Set(ctx context.Context, collection, id string, doc interface{}) error
	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// AppendUnique unions value into the named array field. Appending a value
	// already present is a no-op, which makes retries of partially failed
	// multi-document writes harmless.
	AppendUnique(ctx context.Context, collection, id, field string, value interface{}) error
	// Add inserts a document under a freshly assigned id and returns the id.
	Add(ctx context.Context, collection string, doc interface{}) (string, error)
	// Delete removes the document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error
	// Query decodes all documents matching field <op> value into out, which
	// must be a pointer to a slice. An empty field selects the whole
	// collection.
	Query(ctx context.Context, collection, field, op string, value interface{}, out interface{}) error
	// Subscribe invokes onChange after every committed change to the target
	// until the returned CancelFunc is called. Notifications carry no
	// payload; subscribers re-read whatever they need.
	Subscribe(ctx context.Context, target Target, onChange func(), onError func(error)) CancelFunc
}

// resolveTimestamps replaces ServerTimestamp sentinels in a field map with
// the current instant. Documents provided as structs carry no sentinels and
// pass through untouched.
func resolveTimestamps(doc interface{}) interface{} {
	m, ok := fieldMap(doc)
	if !ok {
		return doc
	}
	now := time.Now().UTC()
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if _, isSentinel := v.(serverTimestamp); isSentinel {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func fieldMap(doc interface{}) (map[string]interface{}, bool) {
	switch m := doc.(type) {
	case map[string]interface{}:
		return m, true
	case bson.M:
		return m, true
	}
	return nil, false
}
