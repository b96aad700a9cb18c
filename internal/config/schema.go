package config

import (
	"encoding/json"
	"slices"

	"github.com/invopop/jsonschema"
)

func reflectSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Config{})
	s.Title = "chatscroller configuration"
	return s
}

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	return json.MarshalIndent(reflectSchema(), "", "  ")
}

// Fields lists the dotted paths of every settable leaf field.
func Fields() []string {
	var fields []string
	var walk func(prefix string, s *jsonschema.Schema)
	walk = func(prefix string, s *jsonschema.Schema) {
		if s.Properties == nil || s.Properties.Len() == 0 {
			if prefix != "" {
				fields = append(fields, prefix)
			}
			return
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			name := pair.Key
			if prefix != "" {
				name = prefix + "." + pair.Key
			}
			walk(name, pair.Value)
		}
	}
	walk("", reflectSchema())
	slices.Sort(fields)
	return fields
}
