// Package helpers holds input parsing and rendering shared by CLI commands.
package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadPayload resolves a feature payload from --payload or --file. A file of
// "-" reads stdin. With neither set the payload is an empty object.
func ReadPayload(inline, file string, stdin io.Reader) (map[string]any, error) {
	if inline != "" && file != "" {
		return nil, errors.New("use either --payload or --file, not both")
	}

	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	payload := map[string]any{}
	if strings.TrimSpace(string(raw)) == "" {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}
