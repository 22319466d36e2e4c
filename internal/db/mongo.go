package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// MongoBackend stores documents in a MongoDB database.
type MongoBackend struct {
	client   *mongo.Client
	database *mongo.Database
}

var _ Backend = (*MongoBackend)(nil)

// MongoOptions configures OpenMongo.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

// OpenMongo creates a client for the configured deployment. The driver
// connects lazily; callers ping to fail fast.
func OpenMongo(ctx context.Context, opts MongoOptions) (*MongoBackend, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(uint64(opts.MaxPoolSize))
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	return &MongoBackend{client: client, database: client.Database(opts.Database)}, nil
}

// Collection returns a handle to the named collection. Handles are cheap;
// MongoDB creates the collection on first write.
func (b *MongoBackend) Collection(name string) Collection {
	return &mongoCollection{name: name, coll: b.database.Collection(name)}
}

// Ping checks that the primary is reachable.
func (b *MongoBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx, readpref.Primary()); err != nil {
		return apperrors.NewUnavailableError("mongo ping", err)
	}
	return nil
}

// Close disconnects the client.
func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type mongoCollection struct {
	name string
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.name }

func (c *mongoCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc.withoutID()))
	if err != nil {
		return "", wrapError(c.name, "insert", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprint(res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (c *mongoCollection) UpdateByID(ctx context.Context, id string, doc Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrMalformedID
	}
	set := doc.withoutID()
	if len(set) == 0 {
		return nil
	}
	if _, err := c.coll.UpdateOne(ctx, bson.M{IDField: oid}, bson.M{"$set": bson.M(set)}); err != nil {
		return wrapError(c.name, "update", err)
	}
	return nil
}

func (c *mongoCollection) FindByID(ctx context.Context, id string) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrMalformedID
	}
	return c.findOne(ctx, bson.M{IDField: oid})
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	return c.findOne(ctx, q)
}

func (c *mongoCollection) findOne(ctx context.Context, q bson.M) (Document, error) {
	var raw bson.M
	if err := c.coll.FindOne(ctx, q).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, wrapError(c.name, "find", err)
	}
	return fromBSON(raw), nil
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := c.coll.Find(ctx, q)
	if err != nil {
		return nil, wrapError(c.name, "find", err)
	}
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, wrapError(c.name, "find", err)
	}
	out := make([]Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, fromBSON(raw))
	}
	return out, nil
}

func (c *mongoCollection) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, apperrors.ErrMalformedID
	}
	res, err := c.coll.DeleteOne(ctx, bson.M{IDField: oid})
	if err != nil {
		return 0, wrapError(c.name, "delete", err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, q)
	if err != nil {
		return 0, wrapError(c.name, "delete", err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := c.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, wrapError(c.name, "count", err)
	}
	return n, nil
}

func (c *mongoCollection) GroupCount(ctx context.Context, field string, filter Filter) ([]GroupCount, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := c.coll.Aggregate(ctx, groupPipeline(field, q))
	if err != nil {
		return nil, wrapError(c.name, "aggregate", err)
	}
	var rows []struct {
		Key   any   `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, wrapError(c.name, "aggregate", err)
	}
	out := make([]GroupCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, GroupCount{Key: stringKey(normalizeBSON(r.Key)), Count: r.Count})
	}
	return out, nil
}

func (c *mongoCollection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(unique),
	}
	if _, err := c.coll.Indexes().CreateOne(ctx, model); err != nil {
		return wrapError(c.name, "create index", err)
	}
	return nil
}

// groupPipeline builds {$match} -> {$group: {_id: $field, count: {$sum: 1}}}.
func groupPipeline(field string, match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// mongoFilter translates a Filter into a query document.
func mongoFilter(f Filter) (bson.M, error) {
	if f.IsZero() {
		return bson.M{}, nil
	}

	conds := make([]bson.M, 0, len(f.Eq)+len(f.NonEmpty))
	for _, field := range f.eqFields() {
		v := f.Eq[field]
		if field == IDField {
			s, _ := v.(string)
			oid, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, apperrors.ErrMalformedID
			}
			v = oid
		}
		conds = append(conds, bson.M{field: v})
	}
	for _, field := range f.NonEmpty {
		conds = append(conds, bson.M{field: bson.M{"$exists": true, "$nin": bson.A{nil, ""}}})
	}

	if len(conds) == 1 {
		return conds[0], nil
	}
	all := make(bson.A, len(conds))
	for i, c := range conds {
		all[i] = c
	}
	return bson.M{"$and": all}, nil
}

// fromBSON converts a decoded document into driver-independent values:
// ObjectIDs become hex strings, BSON dates become UTC time.Time, int32
// becomes int64 and nested documents become plain maps.
func fromBSON(raw bson.M) Document {
	out := make(Document, len(raw))
	for k, v := range raw {
		out[k] = normalizeBSON(v)
	}
	return out
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case bson.M:
		return map[string]any(fromBSON(t))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	default:
		return v
	}
}
