package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// LoadYAMLFile decodes a YAML document into out. Unknown keys are rejected so
// typos surface instead of silently falling back to defaults.
func LoadYAMLFile(path string, out any) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read config file %s", path)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrapf(err, "Failed to parse config file %s", path)
	}

	return nil
}
