package envvar

import (
	"fmt"
	"os"
)

const (
	AWS_ACCESS_KEY_ID     = "AWS_ACCESS_KEY_ID"
	AWS_SECRET_ACCESS_KEY = "AWS_SECRET_ACCESS_KEY"
	RABBITMQ_URL          = "RABBITMQ_URL"
	GOOGLE_CLOUD_KEY      = "GOOGLE_CLOUD_KEY"
	S3_ENDPOINT           = "S3_ENDPOINT"
	S3_ACCESS_KEY         = "S3_ACCESS_KEY"
	S3_SECRET_KEY         = "S3_SECRET_KEY"
	S3_INSECURE           = "S3_INSECURE"
	DEMUCS_BIN_PATH       = "DEMUCS_BIN_PATH"
	FFMPEG_BIN_PATH       = "FFMPEG_BIN_PATH"
)

func Get(key string) string {
	return os.Getenv(key)
}

func GetOr(key string, fallback string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return fallback
	}

	return val
}

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}
