// repositories/txn.go
package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTxnRunner runs a function inside a MongoDB session transaction. Store
// calls made with the ctx passed to fn join the transaction, so a stage
// change, its event and the commission records it produces commit together.
type MongoTxnRunner struct {
	client *mongo.Client
}

func NewMongoTxnRunner(client *mongo.Client) *MongoTxnRunner {
	return &MongoTxnRunner{client: client}
}

func (t *MongoTxnRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
