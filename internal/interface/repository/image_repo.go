package repository

import (
	"context"
	"strings"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoImageRepository implements ImageRepository
type MongoImageRepository struct {
	collection *mongo.Collection
}

// NewMongoImageRepository creates a new image record repository
func NewMongoImageRepository(db *mongo.Database) repository.ImageRepository {
	collection := db.Collection("images")

	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys: bson.M{"destination": 1},
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	return &MongoImageRepository{
		collection: collection,
	}
}

// GetByDestination returns all image records for a destination city code
func (r *MongoImageRepository) GetByDestination(ctx context.Context, cityCode string) ([]entity.ImageRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"destination": cityCode})
	if err != nil {
		return nil, err
	}

	var records []entity.ImageRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetAll returns every image record on file
func (r *MongoImageRepository) GetAll(ctx context.Context) ([]entity.ImageRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var records []entity.ImageRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save stores a new image record. The destination city code is the file
// name prefix: "{code}_{rest}".
func (r *MongoImageRepository) Save(ctx context.Context, name string) (*entity.ImageRecord, error) {
	record := &entity.ImageRecord{
		ID:          primitive.NewObjectID().Hex(),
		Name:        name,
		Destination: strings.SplitN(name, "_", 2)[0],
		AddedAt:     time.Now(),
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes an image record by name
func (r *MongoImageRepository) Delete(ctx context.Context, name string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"name": name})
	return err
}
