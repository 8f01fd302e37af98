package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	KeysCollection    = "api_keys"
	DomainsCollection = "provider_domains"
)

type Config struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database" validate:"required_with=URI"`
}

// NewMongoConn connects, pings and makes sure the indexes the repository relies on exist.
func NewMongoConn(ctx context.Context, cfg Config, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, fmt.Errorf("mongo uri is not set")
	}
	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("mongo database is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	log.Info("connected to MongoDB", zap.String("database", cfg.Database))
	return client, db, nil
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(KeysCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"key_hash": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on %s: %w", KeysCollection, err)
	}

	_, err = db.Collection(DomainsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"provider": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on %s: %w", DomainsCollection, err)
	}
	return nil
}
