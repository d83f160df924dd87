package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store on a MongoDB database. Document ids are opaque
// strings (auth-assigned for users, uuid for everything else), AppendUnique
// maps to $addToSet and Subscribe maps to change streams.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(client *mongo.Client, dbName string) *Mongo {
	return &Mongo{db: client.Database(dbName)}
}

func (m *Mongo) collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func (m *Mongo) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := m.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Set(ctx context.Context, collection, id string, doc interface{}) error {
	normalized, err := normalizeDoc(doc)
	if err != nil {
		return err
	}
	normalized["_id"] = id
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, normalized, opts); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	result, err := m.collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": resolveTimestamps(fields)},
	)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (m *Mongo) AppendUnique(ctx context.Context, collection, id, field string, value interface{}) error {
	result, err := m.collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{field: value}},
	)
	if err != nil {
		return fmt.Errorf("failed to append to %s/%s.%s: %w", collection, id, field, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (m *Mongo) Add(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, collection, field, op string, value interface{}, out interface{}) error {
	filter, err := queryFilter(field, op, value)
	if err != nil {
		return err
	}
	cursor, err := m.collection(collection).Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s query results: %w", collection, err)
	}
	return nil
}

func (m *Mongo) Subscribe(ctx context.Context, target Target, onChange func(), onError func(error)) CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		pipeline, err := changeStreamPipeline(target)
		if err != nil {
			onError(err)
			return
		}
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		stream, err := m.collection(target.Collection).Watch(ctx, pipeline, opts)
		if err != nil {
			if ctx.Err() == nil {
				onError(fmt.Errorf("failed to open change stream on %s: %w", target.Collection, err))
			}
			return
		}
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			onChange()
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(fmt.Errorf("change stream on %s failed: %w", target.Collection, err))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func changeStreamPipeline(target Target) (mongo.Pipeline, error) {
	if target.ID != "" {
		return mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"documentKey._id": target.ID}}},
		}, nil
	}
	if target.Field == "" {
		return mongo.Pipeline{}, nil
	}
	filter, err := queryFilter("fullDocument."+target.Field, target.Op, target.Value)
	if err != nil {
		return nil, err
	}
	// deletes drop fullDocument; keep them so stale views refresh
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			filter,
			bson.M{"operationType": "delete"},
		}}}},
	}, nil
}

func queryFilter(field, op string, value interface{}) (bson.M, error) {
	if field == "" {
		return bson.M{}, nil
	}
	switch op {
	case OpEqual:
		return bson.M{field: value}, nil
	case OpArrayContains:
		return bson.M{field: bson.M{"$elemMatch": bson.M{"$eq": value}}}, nil
	}
	return nil, fmt.Errorf("unsupported query operator %q", op)
}
