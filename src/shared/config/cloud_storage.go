package config

type CloudStorage interface {
	GetScheme() string
}

var _ CloudStorage = GoogleCloudStorage{}

// GoogleCloudStorage holds the service account key JSON. An empty key uses
// application default credentials.
type GoogleCloudStorage struct {
	SecretKey string
}

func (g GoogleCloudStorage) GetScheme() string {
	return "gs"
}

var _ CloudStorage = S3CloudStorage{}

type S3CloudStorage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Insecure  bool
}

func (s S3CloudStorage) GetScheme() string {
	return "s3"
}
