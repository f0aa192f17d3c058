package storagepath

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type Generator struct {
	Scheme string
	Bucket string
	Prefix string
}

func ParseGenerator(target string) (Generator, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return Generator{}, cerr.Field("target", target).
			Wrap(err).Error("Failed to parse upload target")
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return Generator{}, cerr.Field("target", target).
			Error("Upload target needs a scheme and a bucket, e.g. gs://bucket/prefix")
	}

	return Generator{
		Scheme: parsed.Scheme,
		Bucket: parsed.Host,
		Prefix: strings.Trim(parsed.Path, "/"),
	}, nil
}

func (g Generator) GeneratePath(jobDirName string, leafPath string) string {
	if g.Prefix == "" {
		return fmt.Sprintf("%s://%s/%s/%s", g.Scheme, g.Bucket, jobDirName, leafPath)
	}

	return fmt.Sprintf("%s://%s/%s/%s/%s", g.Scheme, g.Bucket, g.Prefix, jobDirName, leafPath)
}

// SplitURL breaks a generated path back into its bucket and object key.
func SplitURL(objectURL string) (bucket string, key string, err error) {
	parsed, err := url.Parse(objectURL)
	if err != nil {
		return "", "", cerr.Field("url", objectURL).
			Wrap(err).Error("Failed to parse object URL")
	}

	key = strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || key == "" {
		return "", "", cerr.Field("url", objectURL).Error("Object URL is missing a bucket or key")
	}

	return parsed.Host, key, nil
}
