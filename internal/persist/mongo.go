package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "snapshots"

type snapshotDoc struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"` // JSON, same bytes as the other backends
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Mongo struct {
	coll *mongo.Collection
	key  string
}

func NewMongo(db *mongo.Database, key string) *Mongo {
	if key == "" {
		key = DefaultKey
	}
	return &Mongo{coll: db.Collection(mongoCollection), key: key}
}

// ConnectMongo dials and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (m *Mongo) Load(ctx context.Context) (*market.State, error) {
	var doc snapshotDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": m.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return Decode([]byte(doc.Data))
}

func (m *Mongo) Save(ctx context.Context, st market.State) error {
	b, err := Encode(st)
	if err != nil {
		return err
	}
	doc := snapshotDoc{ID: m.key, Data: string(b), UpdatedAt: time.Now().UTC()}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": m.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
