package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoFieldID     = "_id"
	mongoFieldParent = "_parent"
	mongoFieldKey    = "_key"
)

// MongoStore implements Gateway on MongoDB.
//
// Collection design:
//   - one Mongo collection per leaf name ("carts", "addresses", "orders", ...)
//   - _id: full document path, e.g. "users/u1/addresses/a1"
//   - _parent: parent document path ("" for top-level collections)
//   - _key: document id within its collection
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) col(collection string) (*mongo.Collection, string) {
	parent, leaf := splitCollection(collection)
	return m.db.Collection(leaf), parent
}

func (m *MongoStore) GetDocument(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}
	col, _ := m.col(collection)

	raw, err := col.FindOne(ctx, bson.M{mongoFieldID: collection + "/" + id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, unavailable("get", err)
	}

	doc, err := decodeMongoRaw(raw)
	if err != nil {
		return nil, err
	}
	return &Snapshot{ID: id, Data: doc}, nil
}

func (m *MongoStore) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	normalized, err := normalize(data)
	if err != nil {
		return err
	}
	col, parent := m.col(collection)

	body := bson.M{}
	for k, v := range normalized {
		body[k] = v
	}
	body[mongoFieldParent] = parent
	body[mongoFieldKey] = id

	filter := bson.M{mongoFieldID: collection + "/" + id}
	if merge {
		update := bson.M{"$set": body}
		_, err = col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	} else {
		body[mongoFieldID] = collection + "/" + id
		_, err = col.ReplaceOne(ctx, filter, body, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (m *MongoStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	col, _ := m.col(collection)

	if _, err := col.DeleteOne(ctx, bson.M{mongoFieldID: collection + "/" + id}); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (m *MongoStore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := queryValue(value)
	if err != nil {
		return nil, err
	}
	col, parent := m.col(collection)

	filter := bson.M{mongoFieldParent: parent, field: want}
	opts := options.Find().SetSort(bson.D{{Key: mongoFieldKey, Value: 1}})

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("query", err)
	}
	defer cur.Close(ctx)

	result := make([]Snapshot, 0)
	for cur.Next(ctx) {
		doc, err := decodeMongoRaw(cur.Current)
		if err != nil {
			return nil, err
		}
		id, _ := cur.Current.Lookup(mongoFieldKey).StringValueOK()
		result = append(result, Snapshot{ID: id, Data: doc})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	return result, nil
}

// EnsureIndexes creates the scoping index on _parent and the indexes backing
// the equality queries the services issue.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	queried := map[string][]string{
		"addresses":        {"userId"},
		OrdersCollection:   {"userId", "status"},
		ProductsCollection: {"category"},
		ServicesCollection: {"isAvailable"},
	}

	for leaf, fields := range queried {
		indexes := make([]mongo.IndexModel, 0, len(fields))
		for _, f := range fields {
			indexes = append(indexes, mongo.IndexModel{
				Keys: bson.D{{Key: mongoFieldParent, Value: 1}, {Key: f, Value: 1}},
			})
		}
		if _, err := m.db.Collection(leaf).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", leaf, err)
		}
	}
	return nil
}

// decodeMongoRaw converts a BSON document into a plain JSON-shaped Document
// and strips the bookkeeping fields.
func decodeMongoRaw(raw bson.Raw) (Document, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(ext, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	delete(doc, mongoFieldID)
	delete(doc, mongoFieldParent)
	delete(doc, mongoFieldKey)
	return doc, nil
}
