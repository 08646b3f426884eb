package util

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ParseYAMLFile reads a file and parses it as YAML, using the provided object.
// Fields missing from the file keep the values already present in the object.
func ParseYAMLFile(destination interface{}, path string) error {
	log.WithFields(log.Fields{
		"datatype": fmt.Sprintf("%T", destination),
		"path":     path,
	}).Trace("Parsing YAML file")

	dat, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(dat, destination); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// ReadTextFile reads a whole dump file as text.
func ReadTextFile(path string) (string, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(dat), nil
}
