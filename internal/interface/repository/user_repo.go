package repository

import (
	"context"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository implements UserRepository
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new user repository
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &MongoUserRepository{
		collection: db.Collection("users"),
	}
}

// GetCredentials returns the stored credential pair for a username, or
// mongo.ErrNoDocuments when the user is not registered
func (r *MongoUserRepository) GetCredentials(ctx context.Context, username string) (*entity.UserCredentials, error) {
	opts := options.FindOne().SetProjection(bson.M{"username": 1, "password": 1, "uuid": 1})

	var creds entity.UserCredentials
	err := r.collection.FindOne(ctx, bson.M{"username": username}, opts).Decode(&creds)
	if err != nil {
		return nil, err
	}
	return &creds, nil
}
