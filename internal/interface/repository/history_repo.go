package repository

import (
	"context"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHistoryRepository implements HistoryRepository
type MongoHistoryRepository struct {
	collection *mongo.Collection
	images     *mongo.Collection
}

// NewMongoHistoryRepository creates a new history repository
func NewMongoHistoryRepository(db *mongo.Database) repository.HistoryRepository {
	collection := db.Collection("history")

	// Index on createdAt for the recent-entries feed
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys: bson.M{"createdAt": -1},
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	statusIndex := mongo.IndexModel{
		Keys: bson.M{"status": 1},
	}
	collection.Indexes().CreateOne(ctx, statusIndex)

	return &MongoHistoryRepository{
		collection: collection,
		images:     db.Collection("images"),
	}
}

// Insert stores a new history entry and returns its assigned id
func (r *MongoHistoryRepository) Insert(ctx context.Context, entry *entity.HistoryEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return "", err
	}

	return entry.ID, nil
}

// UpdateStatus persists a lifecycle transition
func (r *MongoHistoryRepository) UpdateStatus(ctx context.Context, id string, status entity.Status, description string) error {
	update := bson.M{"status": status}
	if description != "" {
		update["statusDescription"] = description
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
	)
	return err
}

// GetRecent returns the latest n entries (skipping skip), newest first,
// with each entry's destination images attached
func (r *MongoHistoryRepository) GetRecent(ctx context.Context, n, skip int) ([]entity.HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64(skip)).
		SetLimit(int64(n))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var latest []entity.HistoryEntry
	if err := cursor.All(ctx, &latest); err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return []entity.HistoryEntry{}, nil
	}

	destinations := make([]string, 0, len(latest))
	seen := make(map[string]bool)
	for _, e := range latest {
		if !seen[e.Destination] {
			seen[e.Destination] = true
			destinations = append(destinations, e.Destination)
		}
	}

	imgCursor, err := r.images.Find(ctx, bson.M{"destination": bson.M{"$in": destinations}})
	if err != nil {
		return nil, err
	}

	var images []entity.ImageRecord
	if err := imgCursor.All(ctx, &images); err != nil {
		return nil, err
	}

	for i := range latest {
		latest[i].Images = []entity.ImageRecord{}
		for _, img := range images {
			if img.Destination == latest[i].Destination {
				latest[i].Images = append(latest[i].Images, img)
			}
		}
	}

	return latest, nil
}

// FailStuck force-transitions entries that lingered in processing for
// longer than olderThan, and returns how many were fixed
func (r *MongoHistoryRepository) FailStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"status":    entity.StatusProcessing,
			"createdAt": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"status":            entity.StatusFailed,
			"statusDescription": "Entry stuck or outdated",
		}},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
