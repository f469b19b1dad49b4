package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// storedDocument is how a named JSON document lives in the collection. The
// body is kept as raw JSON so the store stays schema-agnostic.
type storedDocument struct {
	Name string `bson:"name"`
	Data string `bson:"data"`
}

// MongoStore keeps every named document in a single collection, one record
// per name.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("documents")}
}

func (s *MongoStore) Load(ctx context.Context, name string, out interface{}) (bool, error) {
	var doc storedDocument
	err := s.collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(doc.Data), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *MongoStore) Save(ctx context.Context, name string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	opts := options.Replace().SetUpsert(true)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"name": name}, storedDocument{Name: name, Data: string(data)}, opts)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, name string, item interface{}) error {
	return appendToDocument(ctx, s, name, item)
}
