// Package database opens the connections used by the credential store and
// the auth rate limiter. Callers own the returned handles.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDB = "clipstream"

// ConnectMongo dials MongoDB and pings it. When dbName is empty the database
// name is taken from the URI path, falling back to "clipstream".
func ConnectMongo(ctx context.Context, mongoURI, dbName string, log logrus.FieldLogger) (*mongo.Client, *mongo.Database, error) {
	// Atlas clusters can take a while on a cold start
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	log.Info("connecting to MongoDB")
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	if dbName == "" {
		dbName = DatabaseNameFromURI(mongoURI)
	}
	log.WithField("database", dbName).Info("connected to MongoDB")
	return client, client.Database(dbName), nil
}

// DatabaseNameFromURI extracts the path component of a mongodb:// or
// mongodb+srv:// URI, e.g. "mongodb://host/app?tls=true" gives "app".
func DatabaseNameFromURI(mongoURI string) string {
	parts := strings.Split(mongoURI, "/")
	if len(parts) > 3 {
		if name := strings.Split(parts[len(parts)-1], "?")[0]; name != "" {
			return name
		}
	}
	return defaultMongoDB
}

func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
