// Package schema generates JSON Schemas for the svm config file and for
// the release manifests svm consumes.
package schema

import (
	"encoding/json"
	"reflect"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/pkg/config"
)

const (
	schemaURI = "https://json-schema.org/draft/2020-12/schema"

	// BaseURL is where the published schemas are served from.
	BaseURL = "https://raw.githubusercontent.com/smykla-skalski/svm/main/schema/"

	// ConfigFilename is the file name of the config schema.
	ConfigFilename = "config.schema.json"

	// ManifestFilename is the file name of the release manifest schema.
	ManifestFilename = "list.schema.json"

	configTitle   = "svm configuration"
	manifestTitle = "solc release manifest"
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true,
		Mapper:         mapType,
	}
}

// mapType covers library types that cannot describe themselves.
func mapType(t reflect.Type) *jsonschema.Schema {
	if t == reflect.TypeFor[semver.Version]() {
		return &jsonschema.Schema{
			Type:        "string",
			Description: "Semantic version",
			Examples:    []any{"0.8.24"},
		}
	}

	return nil
}

// Config produces the JSON Schema of config.Config.
func Config() *jsonschema.Schema {
	s := reflector().Reflect(&config.Config{})
	s.Version = schemaURI
	s.Title = configTitle

	return s
}

// Manifest produces the JSON Schema of a per-platform list.json manifest.
func Manifest() *jsonschema.Schema {
	s := reflector().Reflect(&releases.Catalog{})
	s.Version = schemaURI
	s.Title = manifestTitle

	return s
}

// SchemaDirective returns the Taplo directive that binds a TOML config
// file to the published config schema.
func SchemaDirective() string {
	return "#:schema " + BaseURL + ConfigFilename
}

// Files returns every schema keyed by file name.
func Files() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		ConfigFilename:   Config(),
		ManifestFilename: Manifest(),
	}
}

// MarshalJSON renders s, pretty-printed when indent is true.
func MarshalJSON(s *jsonschema.Schema, indent bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}

	if err != nil {
		return nil, errors.Wrap(err, "marshaling schema to JSON")
	}

	// trailing newline for file output
	return append(data, '\n'), nil
}
