package utils

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects a config struct into an inline JSON schema.
func GetSchemaFromConfig(config any) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(config)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// MaskSecret keeps the last four characters of a credential for display.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}

	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// ChunkStrings splits items into consecutive chunks of at most size elements.
// A non-positive size returns a single chunk.
func ChunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}

	if size <= 0 || size >= len(items) {
		return [][]string{items}
	}

	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}

	return chunks
}
