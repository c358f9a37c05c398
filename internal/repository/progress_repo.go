package repository

import (
	"context"
	"errors"
	"quizprogress/internal/cache"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProgressCollection holds one document per cached attempt key
const ProgressCollection = "attempt_progress"

type progressDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ProgressRepo is a cache.Store backed by MongoDB
type ProgressRepo struct {
	collection *mongo.Collection
	ttl        time.Duration
}

var _ cache.Store = (*ProgressRepo)(nil)

// NewProgressRepo creates a new progress repository. A zero ttl disables expiry.
func NewProgressRepo(db *mongo.Database, ttl time.Duration) *ProgressRepo {
	return &ProgressRepo{
		collection: db.Collection(ProgressCollection),
		ttl:        ttl,
	}
}

// EnsureIndexes creates the TTL index on updatedAt
func (r *ProgressRepo) EnsureIndexes(ctx context.Context) error {
	if r.ttl <= 0 {
		return nil
	}
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(r.ttl.Seconds())).SetName("updatedAt_ttl"),
	})
	return err
}

func (r *ProgressRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc progressDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, err
	}
	// the TTL monitor runs about once a minute, so check expiry here too
	if r.ttl > 0 && time.Since(doc.UpdatedAt) > r.ttl {
		return nil, cache.ErrMiss
	}
	return []byte(doc.Value), nil
}

func (r *ProgressRepo) Set(ctx context.Context, key string, value []byte) error {
	doc := progressDoc{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ProgressRepo) Delete(ctx context.Context, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (r *ProgressRepo) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Key string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}
