package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/kv"
)

const defaultCollection = "catalog"

type entryDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// Store keeps every key as one document of a single collection. Update runs
// inside a multi-document transaction, which needs a replica set or sharded
// cluster.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	retry  []kv.RetryOption
}

var _ ports.CatalogStore = (*Store)(nil)

// NewStore uses collection in db, or "catalog" when collection is empty.
func NewStore(db *mongo.Database, collection string, retry ...kv.RetryOption) *Store {
	if collection == "" {
		collection = defaultCollection
	}
	return &Store{
		client: db.Client(),
		coll:   db.Collection(collection),
		retry:  append([]kv.RetryOption{kv.WithBackend("mongo")}, retry...),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.find(ctx, key)
}

func (s *Store) find(ctx context.Context, key string) ([]byte, error) {
	var doc entryDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, key, value)
}

func (s *Store) put(ctx context.Context, key string, value []byte) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		entryDoc{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo replace %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.remove(ctx, key)
}

func (s *Store) remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]ports.Entry, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find prefix %s: %w", prefix, err)
	}
	defer cur.Close(ctx)

	out := make([]ports.Entry, 0)
	for cur.Next(ctx) {
		var doc entryDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		out = append(out, ports.Entry{Key: doc.Key, Value: doc.Value})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return out, nil
}

// Update reads and writes through a session transaction. The driver retries
// transient write conflicts itself; one still surfacing is mapped to
// ports.ErrConflict and retried with backoff.
func (s *Store) Update(ctx context.Context, keys []string, fn func(ports.Txn) error) error {
	return kv.RetryOnConflict(ctx, func(ctx context.Context) error {
		sess, err := s.client.StartSession()
		if err != nil {
			return fmt.Errorf("mongo session: %w", err)
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			txn := kv.NewTxn(keys, func(key string) ([]byte, error) {
				return s.find(sc, key)
			})
			if err := fn(txn); err != nil {
				return nil, err
			}
			for _, w := range txn.Writes() {
				if w.Deleted {
					if err := s.remove(sc, w.Key); err != nil {
						return nil, err
					}
					continue
				}
				if err := s.put(sc, w.Key, w.Value); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		if isTransient(err) {
			return fmt.Errorf("%w: %v", ports.ErrConflict, err)
		}
		return err
	}, s.retry...)
}

func isTransient(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError")
	}
	return false
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
