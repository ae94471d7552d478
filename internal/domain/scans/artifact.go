package scans

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// ParseArtifact reads a tool artifact into a payload of the given kind.
// A missing or blank file is an empty payload, not an error. A file holding
// one JSON document is decoded whole; anything else is treated as
// newline-delimited JSON and lines that fail to decode are skipped.
func ParseArtifact(path string, kind PayloadKind) (Payload, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Payload{}, nil
	}
	if err != nil {
		return Payload{}, err
	}
	return ParseArtifactBytes(b, kind)
}

// ParseArtifactBytes is ParseArtifact over an in-memory artifact.
func ParseArtifactBytes(b []byte, kind PayloadKind) (Payload, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Payload{}, nil
	}

	var values []any
	var doc any
	if err := json.Unmarshal(b, &doc); err == nil {
		values = append(values, doc)
	} else {
		values = decodeLines(b)
	}

	switch kind {
	case PayloadCategories:
		return categoriesPayload(values), nil
	case PayloadNames:
		return namesPayload(values), nil
	default:
		return Payload{}, nil
	}
}

// decodeLines decodes each non-blank line on its own. A line of any length
// that is not valid JSON is skipped.
func decodeLines(b []byte) []any {
	var out []any
	for len(b) > 0 {
		line := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line, b = b[:i], b[i+1:]
		} else {
			b = nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func categoriesPayload(values []any) Payload {
	cats := make(map[string][]string)
	for _, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for category, raw := range obj {
			list, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if s, ok := item.(string); ok && s != "" {
					cats[category] = append(cats[category], s)
				}
			}
		}
	}
	if len(cats) == 0 {
		return Payload{}
	}
	return Payload{Kind: PayloadCategories, Categories: cats}
}

func namesPayload(values []any) Payload {
	var names []string
	var visit func(v any)
	visit = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				visit(item)
			}
		case map[string]any:
			if name, ok := t["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	for _, v := range values {
		visit(v)
	}
	if len(names) == 0 {
		return Payload{}
	}
	return Payload{Kind: PayloadNames, Names: names}
}
