package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when neither the config nor the URI names a database.
const DefaultMongoDatabase = "moodlog"

// ConnectMongo dials MongoDB and verifies the connection with a ping.
// The database name comes from dbName, then the URI path, then DefaultMongoDatabase.
func ConnectMongo(ctx context.Context, mongoURI, dbName string, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	// Atlas clusters can take a while to answer the first handshake
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	logger.Info("connecting to mongodb")
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	if dbName == "" {
		dbName = MongoDatabaseName(mongoURI)
	}

	logger.Info("connected to mongodb", slog.String("database", dbName))
	return client, client.Database(dbName), nil
}

// MongoDatabaseName extracts the database from a connection string of the form
// mongodb://host/<database>?options, falling back to DefaultMongoDatabase.
func MongoDatabaseName(mongoURI string) string {
	u, err := url.Parse(mongoURI)
	if err != nil {
		return DefaultMongoDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultMongoDatabase
	}
	return name
}

// DisconnectMongo closes the client with a bounded timeout.
func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
