// Package mongo stores users and tours. Steps are embedded in their tour
// document, in playback order.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	appName        = "tour-builder"
	connectTimeout = 10 * time.Second
	defaultTimeout = 10 * time.Second
)

type Config struct {
	URI      string
	Database string
	// Timeout bounds server selection and the startup ping. Zero means 10s.
	Timeout time.Duration
}

// Connect opens a client, pings the primary and returns the configured
// database alongside the client.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}

	// Annotations are untyped; decoding nested documents as bson.M keeps them
	// JSON objects on the way out.
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes of every repository in db.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewAuthRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := NewTourRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("tours indexes: %w", err)
	}
	return nil
}
