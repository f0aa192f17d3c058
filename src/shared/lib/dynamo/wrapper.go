package dynamolib

import (
	"context"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	"github.com/veedubyou/stemsplitter/src/shared/config"
)

// empty strings are stored as-is instead of being dropped or nulled
var encoder = dynamodbattribute.NewEncoder(func(e *dynamodbattribute.Encoder) {
	e.MarshalOptions.EnableEmptyCollections = true
	e.NullEmptyString = false
	e.NullEmptyByteSlice = false
})

type encodedItem struct {
	item any
}

func (e encodedItem) MarshalDynamo() (*dynamodb.AttributeValue, error) {
	return encoder.Encode(e.item)
}

func NewDynamoDB(dbConfig config.Dynamo) (DynamoDBWrapper, error) {
	dbSession, err := session.NewSession()
	if err != nil {
		return DynamoDBWrapper{}, errors.Wrap(err, "Failed to create AWS session")
	}

	return NewDynamoDBWrapper(dynamo.New(dbSession, dbConfig.AWSConfig())), nil
}

func NewDynamoDBWrapper(db *dynamo.DB) DynamoDBWrapper {
	return DynamoDBWrapper{DB: db}
}

type DynamoDBWrapper struct {
	*dynamo.DB
}

type DynamoTableWrapper struct {
	dynamo.Table
}

func (d DynamoDBWrapper) Table(tableName string) DynamoTableWrapper {
	return DynamoTableWrapper{
		Table: d.DB.Table(tableName),
	}
}

// EnsureTable creates the table from the struct's dynamo tags unless it
// already exists.
func (d DynamoDBWrapper) EnsureTable(ctx context.Context, tableName string, from any) error {
	tableNames, err := d.ListTables().AllWithContext(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to list tables")
	}

	for _, name := range tableNames {
		if name == tableName {
			return nil
		}
	}

	err = d.CreateTable(tableName, from).OnDemand(true).RunWithContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "Failed to create table %s", tableName)
	}

	return nil
}

// PutItem writes the item with the dynamodbav-tag encoder above.
func (d DynamoTableWrapper) PutItem(ctx context.Context, item any) error {
	return d.Table.Put(encodedItem{item: item}).RunWithContext(ctx)
}
