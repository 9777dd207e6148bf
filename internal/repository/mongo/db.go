package mongo

import (
	"coachline/fitness-api/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB and verifies it with a ping.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify the connection
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx) // Don't leak the client on a failed ping
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. A failure is logged
// and the remaining collections are still processed.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) {
	ensure := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{userCollectionName, userIndexes()},
		{exerciseCollectionName, exerciseIndexes()},
		{programCollectionName, programIndexes()},
		{programAssignmentCollectionName, programAssignmentIndexes()},
		{dayCompletionCollectionName, dayCompletionIndexes()},
		{uploadCollectionName, uploadIndexes()},
	}
	for _, e := range ensure {
		if _, err := db.Collection(e.collection).Indexes().CreateMany(ctx, e.indexes); err != nil {
			logger.Warn("failed to create indexes", zap.String("collection", e.collection), zap.Error(err))
		}
	}
}

// mongoTransactor runs callbacks inside a multi-document transaction.
// Requires a replica set or sharded cluster.
type mongoTransactor struct {
	client *mongo.Client
}

// NewTransactor returns a transactor bound to client.
func NewTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().SetWriteConcern(writeconcern.Majority())
	// WithTransaction retries transient errors and commits when fn returns nil
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx) // sessCtx carries the session into every repository call
	}, txnOpts)
	return err
}

// isDuplicateKey reports whether err is a unique index violation.
func isDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}
