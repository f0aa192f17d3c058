package history

import (
	"context"

	"github.com/apex/log"
	"github.com/veedubyou/stemsplitter/src/shared/config"
	dynamolib "github.com/veedubyou/stemsplitter/src/shared/lib/dynamo"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

var _ Store = DynamoStore{}

const runIDField = "run_id"

type DynamoStore struct {
	db        dynamolib.DynamoDBWrapper
	tableName string
}

// OpenDynamo connects and makes sure the history table exists.
func OpenDynamo(ctx context.Context, dbConfig config.Dynamo, tableName string) (DynamoStore, error) {
	errctx := cerr.Field("table", tableName)

	db, err := dynamolib.NewDynamoDB(dbConfig)
	if err != nil {
		return DynamoStore{}, errctx.Wrap(err).Error("Failed to connect to DynamoDB")
	}

	if err := db.EnsureTable(ctx, tableName, Record{}); err != nil {
		return DynamoStore{}, errctx.Wrap(err).Error("Failed to prepare history table")
	}

	log.WithField("table", tableName).Debug("DynamoDB history table ready")
	return NewDynamoStore(db, tableName), nil
}

func NewDynamoStore(db dynamolib.DynamoDBWrapper, tableName string) DynamoStore {
	return DynamoStore{
		db:        db,
		tableName: tableName,
	}
}

func (d DynamoStore) Record(ctx context.Context, record Record) error {
	if err := d.db.Table(d.tableName).PutItem(ctx, record); err != nil {
		return cerr.Field("job_id", record.JobID).Wrap(err).Error("Failed to put history record")
	}

	return nil
}

func (d DynamoStore) ListRun(ctx context.Context, runID string) ([]Record, error) {
	var records []Record

	err := d.db.Table(d.tableName).
		Scan().
		Filter("$ = ?", runIDField, runID).
		AllWithContext(ctx, &records)
	if err != nil {
		return nil, cerr.Field("run_id", runID).Wrap(err).Error("Failed to scan history table")
	}

	return records, nil
}

func (d DynamoStore) Close() error {
	return nil
}
