package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// Collection names used by MongoSink.
const (
	DocumentsCollection = "documents"
	ImagesCollection    = "thumbnails"
)

// MongoSink stores documents in MongoDB, one record per entity keyed by ID.
// Documents from earlier runs are replaced.
type MongoSink struct {
	client *mongo.Client
	docs   *mongo.Collection
	images *mongo.Collection
	dest   string

	mu      sync.Mutex
	written map[entity.ID]bool
}

// NewMongoSink connects to uri and uses the given database.
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	opts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSinkUnavailable, err, "connect to mongodb")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeSinkUnavailable, err, "ping mongodb")
	}
	db := client.Database(database)
	return &MongoSink{
		client:  client,
		docs:    db.Collection(DocumentsCollection),
		images:  db.Collection(ImagesCollection),
		dest:    "mongodb:" + strings.Join(opts.Hosts, ",") + "/" + database,
		written: make(map[entity.ID]bool),
	}, nil
}

// mongoDocument is the stored form. Body holds the document as produced by
// JSONEncoder so that readers see the same shape in both sinks.
type mongoDocument struct {
	ID      string    `bson:"_id"`
	Kind    string    `bson:"kind"`
	RunID   string    `bson:"run_id,omitempty"`
	Updated time.Time `bson:"updated"`
	Body    bson.M    `bson:"body"`
}

type mongoImage struct {
	ID     string           `bson:"_id"`
	Path   string           `bson:"path"`
	Format string           `bson:"format"`
	Width  int              `bson:"width"`
	Height int              `bson:"height"`
	Data   primitive.Binary `bson:"data"`
}

// Destination names the server and database without credentials.
func (s *MongoSink) Destination() string { return s.dest }

// HasDocument reports whether the documents collection holds id.
func (s *MongoSink) HasDocument(ctx context.Context, id entity.ID) (bool, error) {
	n, err := s.docs.CountDocuments(ctx, bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeSinkUnavailable, err, "look up %s", id)
	}
	return n > 0, nil
}

func (s *MongoSink) WriteDocument(ctx context.Context, id entity.ID, doc *entity.Document) error {
	if !s.claim(id) {
		return ErrAlreadyWritten
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "encode %s", id)
	}
	var body bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &body); err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "convert %s", id)
	}

	rec := mongoDocument{
		ID:      string(id),
		Kind:    string(doc.Kind),
		RunID:   doc.RunID,
		Updated: time.Now().UTC(),
		Body:    body,
	}
	return s.replace(ctx, s.docs, string(id), rec)
}

// WriteImage stores img in the thumbnails collection. The returned path
// matches the FileSink layout so that documents look the same in both sinks.
func (s *MongoSink) WriteImage(ctx context.Context, id entity.ID, img *entity.Image) (string, error) {
	p := ImagePath(id, img.Format)
	rec := mongoImage{
		ID:     string(id),
		Path:   p,
		Format: img.Format,
		Width:  img.Width,
		Height: img.Height,
		Data:   primitive.Binary{Data: img.Data},
	}
	if err := s.replace(ctx, s.images, string(id), rec); err != nil {
		return "", err
	}
	return p, nil
}

func (s *MongoSink) replace(ctx context.Context, coll *mongo.Collection, id string, rec any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyWritten
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "store %s in %s", id, coll.Name())
	}
	return nil
}

// Close disconnects from the server.
func (s *MongoSink) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

func (s *MongoSink) claim(id entity.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written[id] {
		return false
	}
	s.written[id] = true
	return true
}

var (
	_ Sink        = (*MongoSink)(nil)
	_ ImageWriter = (*MongoSink)(nil)
	_ Destination = (*MongoSink)(nil)
	_ Checker     = (*MongoSink)(nil)
)
