package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/model"
)

// LoadJSON reads a JSON array of objects. Column order follows first appearance.
func LoadJSON(path string) (*catalog.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("read %s: expected JSON array", path)
	}

	var cols columnOrder
	var rows []model.Row
	for dec.More() {
		row, err := decodeObject(dec, &cols)
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, len(rows), err)
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return catalog.NewTable(cols.names, rows)
}

// LoadJSONLines reads one JSON object per line. Blank lines are skipped.
func LoadJSONLines(path string) (*catalog.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cols columnOrder
	var rows []model.Row
	r := bufio.NewReader(f)
	for line := 1; ; line++ {
		text, err := r.ReadString('\n')
		if strings.TrimSpace(text) != "" {
			dec := json.NewDecoder(strings.NewReader(text))
			row, derr := decodeObject(dec, &cols)
			if derr != nil {
				return nil, fmt.Errorf("read %s line %d: %w", path, line, derr)
			}
			rows = append(rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return catalog.NewTable(cols.names, rows)
}

type columnOrder struct {
	names []string
	seen  map[string]struct{}
}

func (c *columnOrder) add(name string) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

// decodeObject reads one JSON object token by token so key order is kept.
func decodeObject(dec *json.Decoder, cols *columnOrder) (model.Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}
	row := make(model.Row)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		row[key] = v
		cols.add(key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return row, nil
}
