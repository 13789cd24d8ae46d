package mstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/lni/dragonboat/v4/logger"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"time"
)

var log = logger.GetLogger("docstore")

// Options configures the MongoDB backed document store
type Options struct {
	URI      string        // mongodb:// or mongodb+srv:// connection string
	Database string        // Name of the database holding one collection per kind
	Timeout  time.Duration // Timeout for the initial ping (0 = 10s)
}

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

type databaseImpl struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDatabase connects to MongoDB using the stable server API v1 and verifies the
// connection with a ping against the primary.
func NewMongoDatabase(ctx context.Context, opts Options) (docstore.IDatabase, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	log.Infof("connected to mongo, using database %q", opts.Database)

	return &databaseImpl{
		client: client,
		db:     client.Database(opts.Database),
	}, nil
}

func (d *databaseImpl) Collection(name string) docstore.ICollection {
	return &collectionImpl{coll: d.db.Collection(name)}
}

func (d *databaseImpl) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// --------------------------------------------------------------------------
// Conversion helper
// --------------------------------------------------------------------------

// toObjectID converts an identifier string back to the native type. Identifiers that are not
// ObjectID hex strings (e.g. documents imported by other tools) are used verbatim.
func toObjectID(id string) any {
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// toFilter converts a filter to BSON, translating a string identifier to its native type
func toFilter(filter docstore.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if s, ok := v.(string); ok && k == docstore.IDField {
			out[k] = toObjectID(s)
			continue
		}
		out[k] = v
	}
	return out
}

// fromBSON converts driver types into plain Go maps and slices. Object ids become hex strings.
func fromBSON(v any) any {
	switch val := v.(type) {
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = fromBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = fromBSON(e)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromBSON(e)
		}
		return out
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}

func toDocument(raw bson.M) docstore.Document {
	return fromBSON(raw).(map[string]any)
}

func wrap(op, coll string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return docstore.NewError(docstore.RetCDuplicateKey, fmt.Sprintf("%s on %s: %v", op, coll, err))
	}
	return fmt.Errorf("mongo %s on %s: %w", op, coll, err)
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

type collectionImpl struct {
	coll *mongo.Collection
}

func (c *collectionImpl) InsertOne(ctx context.Context, doc docstore.Document) (string, error) {
	if _, ok := doc[docstore.IDField]; ok {
		return "", docstore.NewError(docstore.RetCInvalidOperation, "document already carries an identifier")
	}

	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", wrap("insert", c.coll.Name(), err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (c *collectionImpl) UpdateByID(ctx context.Context, id string, set docstore.Document) (bool, error) {
	if _, ok := set[docstore.IDField]; ok {
		return false, docstore.NewError(docstore.RetCInvalidOperation, "the identifier can not be updated")
	}

	res, err := c.coll.UpdateOne(ctx,
		bson.D{{Key: docstore.IDField, Value: toObjectID(id)}},
		bson.D{{Key: "$set", Value: bson.M(set)}},
	)
	if err != nil {
		return false, wrap("update", c.coll.Name(), err)
	}
	return res.MatchedCount > 0, nil
}

func (c *collectionImpl) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: docstore.IDField, Value: toObjectID(id)}})
	if err != nil {
		return false, wrap("delete", c.coll.Name(), err)
	}
	return res.DeletedCount > 0, nil
}

func (c *collectionImpl) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, toFilter(filter))
	if err != nil {
		return 0, wrap("delete many", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *collectionImpl) FindByID(ctx context.Context, id string) (docstore.Document, bool, error) {
	var raw bson.M
	err := c.coll.FindOne(ctx, bson.D{{Key: docstore.IDField, Value: toObjectID(id)}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("find one", c.coll.Name(), err)
	}
	return toDocument(raw), true, nil
}

func (c *collectionImpl) Find(ctx context.Context, filter docstore.Filter) (docstore.ICursor, error) {
	cur, err := c.coll.Find(ctx, toFilter(filter))
	if err != nil {
		return nil, wrap("find", c.coll.Name(), err)
	}
	return &cursorImpl{cur: cur}, nil
}

func (c *collectionImpl) Aggregate(ctx context.Context, pipeline []docstore.Document) (docstore.ICursor, error) {
	stages := make(bson.A, len(pipeline))
	for i, stage := range pipeline {
		stages[i] = bson.M(stage)
	}
	cur, err := c.coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, wrap("aggregate", c.coll.Name(), err)
	}
	return &cursorImpl{cur: cur}, nil
}

func (c *collectionImpl) CreateIndex(ctx context.Context, spec docstore.IndexSpec) error {
	model := mongo.IndexModel{
		Keys: bson.D{{Key: spec.Field, Value: 1}},
	}
	switch spec.Type {
	case docstore.IndexTUnique:
		model.Options = options.Index().SetUnique(true)
	case docstore.IndexTGeo:
		model.Keys = bson.D{{Key: spec.Field, Value: "2dsphere"}}
	}

	name, err := c.coll.Indexes().CreateOne(ctx, model)
	if err != nil {
		return wrap("create index", c.coll.Name(), err)
	}
	log.Debugf("ensured %s index %s on %s", spec.Type, name, c.coll.Name())
	return nil
}

// --------------------------------------------------------------------------
// Cursor
// --------------------------------------------------------------------------

type cursorImpl struct {
	cur     *mongo.Cursor
	current docstore.Document
	err     error
}

func (c *cursorImpl) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		_ = c.cur.Close(ctx)
		return false
	}

	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		c.err = err
		_ = c.cur.Close(ctx)
		return false
	}
	c.current = toDocument(raw)
	return true
}

func (c *cursorImpl) Document() docstore.Document {
	return c.current
}

func (c *cursorImpl) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *cursorImpl) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
