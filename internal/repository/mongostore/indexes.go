// Package mongostore implements the tour, user and review repositories on
// MongoDB. Ids are ObjectID hex strings; anything else is a cast error.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexSet() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: ToursCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
				{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
			},
		},
		{
			collection: UsersCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
			},
		},
		{
			collection: ReviewsCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "createdAt", Value: 1}}},
			},
		},
	}
}

// EnsureIndexes creates the unique and geo indexes the repositories rely on.
// Creating an index that already exists is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, set := range indexSet() {
		if _, err := db.Collection(set.collection).Indexes().CreateMany(ctx, set.models); err != nil {
			return fmt.Errorf("create %s indexes: %w", set.collection, err)
		}
	}
	return nil
}
