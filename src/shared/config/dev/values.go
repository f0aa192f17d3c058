package dev

import "github.com/veedubyou/stemsplitter/src/shared/config"

// DynamoDB
const (
	DynamoAccessKeyID     = "local"
	DynamoSecretAccessKey = "local"
	DynamoDBHost          = "http://localhost:8000"
	DynamoDBRegion        = "localhost"
)

var DynamoConfig = config.LocalDynamo{
	AccessKeyID:     DynamoAccessKeyID,
	SecretAccessKey: DynamoSecretAccessKey,
	Region:          DynamoDBRegion,
	Host:            DynamoDBHost,
}

// RabbitMQ
const (
	RabbitMQHost      = "amqp://localhost:5672"
	RabbitMQQueueName = "stemsplit-progress-dev"
)

// S3 compatible storage (minio)
const (
	S3Endpoint  = "localhost:9000"
	S3AccessKey = "minioadmin"
	S3SecretKey = "minioadmin"
)
