package customfield

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads field declarations keyed by entity name:
//
//	Product:
//	  - name: weight
//	    type: int
//	    min: 0
//	  - name: tags
//	    type: string
//	    list: true
func LoadYAML(r io.Reader) (Fields, error) {
	var raw map[string][]Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Fields{}, nil
		}
		return nil, fmt.Errorf("customfield: decode yaml: %w", err)
	}
	out := make(Fields, len(raw))
	for entity, cfgs := range raw {
		out.Add(EntityName(entity), cfgs...)
	}
	return out, nil
}
