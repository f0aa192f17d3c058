package config

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

type Dynamo interface {
	AWSConfig() *aws.Config
}

var _ Dynamo = ProdDynamo{}

// ProdDynamo talks to AWS proper. Empty keys defer to the SDK's default
// credential chain.
type ProdDynamo struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

func (p ProdDynamo) AWSConfig() *aws.Config {
	config := aws.NewConfig().WithRegion(p.Region)
	if p.AccessKeyID != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(p.AccessKeyID, p.SecretAccessKey, ""))
	}

	return config
}

var _ Dynamo = LocalDynamo{}

type LocalDynamo struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Host            string
}

func (l LocalDynamo) AWSConfig() *aws.Config {
	return aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials(l.AccessKeyID, l.SecretAccessKey, "")).
		WithEndpoint(l.Host).
		WithRegion(l.Region)
}
