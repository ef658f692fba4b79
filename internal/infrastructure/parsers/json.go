package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses translation units from JSON format.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed units. Both an array of
// unit objects and a flat {"key": "source text"} object are accepted, the
// latter being the common export shape of i18n string catalogs.
func (p *JSONParser) Parse(r io.Reader) ([]RawUnit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}

	var units []RawUnit
	if err := json.Unmarshal(data, &units); err == nil {
		for i := range units {
			if units[i].Key == "" {
				return nil, fmt.Errorf("unit %d: empty key", i+1)
			}
			units[i].LineNum = i + 1
		}
		return units, nil
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	units = make([]RawUnit, 0, len(flat))
	i := 0
	for key, text := range flat {
		i++
		units = append(units, RawUnit{Key: key, SourceText: text, LineNum: i})
	}
	return units, nil
}
