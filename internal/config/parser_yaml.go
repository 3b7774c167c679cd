package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

func decodeYAML(content string) (filePayload, error) {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload filePayload
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return filePayload{}, nil
		}
		return filePayload{}, err
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); err == nil {
		return filePayload{}, fmt.Errorf("multiple YAML documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return filePayload{}, err
	}
	return payload, nil
}
