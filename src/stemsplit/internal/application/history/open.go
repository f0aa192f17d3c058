package history

import (
	"context"
	"net/url"
	"strings"

	"github.com/veedubyou/stemsplitter/src/shared/config"
	"github.com/veedubyou/stemsplitter/src/shared/config/envvar"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const (
	sqliteScheme = "sqlite://"
	dynamoScheme = "dynamo"

	defaultDynamoRegion = "us-east-1"
)

// Target is a parsed --history value.
type Target struct {
	SQLitePath string

	DynamoTable  string
	DynamoConfig config.Dynamo
}

// ParseTarget understands sqlite:///path/to.db and
// dynamo://Table?region=...&endpoint=...
func ParseTarget(value string) (Target, error) {
	errctx := cerr.Field("history", value).Mark(stemerrors.InputMark)

	if strings.HasPrefix(value, sqliteScheme) {
		path := strings.TrimPrefix(value, sqliteScheme)
		if path == "" {
			return Target{}, errctx.Error("SQLite history needs a file path")
		}
		return Target{SQLitePath: path}, nil
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return Target{}, errctx.Wrap(err).Error("Failed to parse history target")
	}

	if parsed.Scheme != dynamoScheme || parsed.Host == "" {
		return Target{}, errctx.Error("History must be sqlite:///path.db or dynamo://Table")
	}

	query := parsed.Query()
	region := query.Get("region")
	if region == "" {
		region = defaultDynamoRegion
	}

	accessKey := envvar.Get(envvar.AWS_ACCESS_KEY_ID)
	secretKey := envvar.Get(envvar.AWS_SECRET_ACCESS_KEY)

	var dbConfig config.Dynamo = config.ProdDynamo{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Region:          region,
	}

	if endpoint := query.Get("endpoint"); endpoint != "" {
		dbConfig = config.LocalDynamo{
			AccessKeyID:     envvar.GetOr(envvar.AWS_ACCESS_KEY_ID, "local"),
			SecretAccessKey: envvar.GetOr(envvar.AWS_SECRET_ACCESS_KEY, "local"),
			Region:          region,
			Host:            endpoint,
		}
	}

	return Target{
		DynamoTable:  parsed.Host,
		DynamoConfig: dbConfig,
	}, nil
}

func Open(ctx context.Context, target Target) (Store, error) {
	if target.SQLitePath != "" {
		return OpenSQLite(target.SQLitePath)
	}

	return OpenDynamo(ctx, target.DynamoConfig, target.DynamoTable)
}
