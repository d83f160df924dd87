package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-memory Store with full subscription support. It normalizes
// every document through BSON so tagged structs, field maps and references
// behave exactly as they do against Mongo. Change notifications fire
// synchronously after the triggering write commits, which makes tests
// deterministic.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.M
	subscribers map[int]*memSubscriber
	nextSub     int
}

type memSubscriber struct {
	target   Target
	onChange func()
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]bson.M),
		subscribers: make(map[int]*memSubscriber),
	}
}

func (m *Memory) Get(ctx context.Context, collection, id string, out interface{}) error {
	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	var raw []byte
	var err error
	if ok {
		raw, err = bson.Marshal(doc)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc interface{}) error {
	normalized, err := normalizeDoc(doc)
	if err != nil {
		return err
	}
	normalized["_id"] = id

	m.mu.Lock()
	old := m.collections[collection][id]
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]bson.M)
	}
	m.collections[collection][id] = normalized
	pending := m.matchingLocked(collection, id, old, normalized)
	m.mu.Unlock()

	fire(pending)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	normalized, err := normalizeDoc(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	old := cloneDoc(doc)
	for k, v := range normalized {
		doc[k] = v
	}
	pending := m.matchingLocked(collection, id, old, doc)
	m.mu.Unlock()

	fire(pending)
	return nil
}

func (m *Memory) AppendUnique(ctx context.Context, collection, id, field string, value interface{}) error {
	normalized, err := normalizeValue(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	arr, _ := doc[field].(primitive.A)
	for _, elem := range arr {
		if reflect.DeepEqual(elem, normalized) {
			m.mu.Unlock()
			return nil
		}
	}
	old := cloneDoc(doc)
	doc[field] = append(arr, normalized)
	pending := m.matchingLocked(collection, id, old, doc)
	m.mu.Unlock()

	fire(pending)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	var pending []func()
	if ok {
		delete(m.collections[collection], id)
		pending = m.matchingLocked(collection, id, doc, nil)
	}
	m.mu.Unlock()

	fire(pending)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection, field, op string, value interface{}, out interface{}) error {
	normalized, err := normalizeValue(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	var matched []bson.M
	for _, doc := range m.collections[collection] {
		if docMatches(doc, field, op, normalized) {
			matched = append(matched, cloneDoc(doc))
		}
	}
	m.mu.Unlock()

	// map iteration order is random; sort by id for determinism
	sort.Slice(matched, func(i, j int) bool {
		a, _ := matched[i]["_id"].(string)
		b, _ := matched[j]["_id"].(string)
		return a < b
	})

	return decodeSlice(matched, out)
}

func (m *Memory) Subscribe(ctx context.Context, target Target, onChange func(), onError func(error)) CancelFunc {
	if target.Value != nil {
		if normalized, err := normalizeValue(target.Value); err == nil {
			target.Value = normalized
		}
	}

	m.mu.Lock()
	m.nextSub++
	key := m.nextSub
	m.subscribers[key] = &memSubscriber{target: target, onChange: onChange}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, key)
			m.mu.Unlock()
		})
	}
}

// matchingLocked collects the onChange callbacks of subscribers affected by a
// change to collection/id. Callers fire them after releasing the lock so a
// callback may re-enter the store.
func (m *Memory) matchingLocked(collection, id string, old, updated bson.M) []func() {
	var pending []func()
	for _, sub := range m.subscribers {
		t := sub.target
		if t.Collection != collection {
			continue
		}
		if t.ID != "" {
			if t.ID == id {
				pending = append(pending, sub.onChange)
			}
			continue
		}
		if docMatches(old, t.Field, t.Op, t.Value) || docMatches(updated, t.Field, t.Op, t.Value) {
			pending = append(pending, sub.onChange)
		}
	}
	return pending
}

func fire(callbacks []func()) {
	for _, cb := range callbacks {
		cb()
	}
}

func docMatches(doc bson.M, field, op string, value interface{}) bool {
	if doc == nil {
		return false
	}
	if field == "" {
		return true
	}
	switch op {
	case OpEqual:
		return reflect.DeepEqual(doc[field], value)
	case OpArrayContains:
		arr, ok := doc[field].(primitive.A)
		if !ok {
			return false
		}
		for _, elem := range arr {
			if reflect.DeepEqual(elem, value) {
				return true
			}
		}
	}
	return false
}

// normalizeDoc rounds a document through BSON into a field map so struct
// tags, references and timestamps compare consistently regardless of the
// shape the caller wrote.
func normalizeDoc(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(resolveTimestamps(doc))
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func normalizeValue(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	m, err := normalizeDoc(bson.M{"v": value})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func decodeSlice(docs []bson.M, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("query result must decode into a pointer to a slice, got %T", out)
	}
	slice := rv.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(docs)))
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(slice.Type().Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}
