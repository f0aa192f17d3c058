package testing

import (
	"os"

	"github.com/veedubyou/stemsplitter/src/shared/config"
	"github.com/veedubyou/stemsplitter/src/shared/config/dev"
)

// Suites that need a local DynamoDB, RabbitMQ or minio skip themselves
// unless this is set.
const IntegrationEnvVar = "STEMSPLIT_INTEGRATION"

func IntegrationEnabled() bool {
	return os.Getenv(IntegrationEnvVar) != ""
}

// DynamoDB
const (
	DynamoAccessKeyID     = dev.DynamoAccessKeyID
	DynamoSecretAccessKey = dev.DynamoSecretAccessKey
	DynamoDBHost          = dev.DynamoDBHost
)

func DynamoConfig(region string) config.LocalDynamo {
	return config.LocalDynamo{
		AccessKeyID:     DynamoAccessKeyID,
		SecretAccessKey: DynamoSecretAccessKey,
		Region:          region,
		Host:            DynamoDBHost,
	}
}

// RabbitMQ
const (
	RabbitMQHost      = dev.RabbitMQHost
	RabbitMQQueueName = "stemsplit-progress-test"
)
