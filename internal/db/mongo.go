package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthtrack/backend/internal/config"
	"github.com/healthtrack/backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RefreshCollection = "refresh_tokens"

// ConnectMongo opens and pings a client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

type MongoRefreshRepository struct {
	col *mongo.Collection
}

func NewMongoRefreshRepository(col *mongo.Collection) *MongoRefreshRepository {
	return &MongoRefreshRepository{col: col}
}

// EnsureIndexes creates the unique lookup index and a TTL index that lets
// the server drop records once expiresAt has passed.
func (r *MongoRefreshRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo create indexes: %w", err)
	}
	return nil
}

func (r *MongoRefreshRepository) InsertRefreshRecord(ctx context.Context, rec model.RefreshRecord) error {
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo insert refresh record: %w", err)
	}
	return nil
}

func (r *MongoRefreshRepository) GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error) {
	var rec model.RefreshRecord
	if err := r.col.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find refresh record: %w", err)
	}
	return &rec, nil
}

func (r *MongoRefreshRepository) DeleteRefreshRecordByHash(ctx context.Context, tokenHash string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"tokenHash": tokenHash}); err != nil {
		return fmt.Errorf("mongo delete refresh record: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshRecords removes what the TTL monitor has not reaped yet.
func (r *MongoRefreshRepository) DeleteExpiredRefreshRecords(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("mongo delete expired refresh records: %w", err)
	}
	return res.DeletedCount, nil
}
