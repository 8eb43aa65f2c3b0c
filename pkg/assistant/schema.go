// Package assistant carries the built-in tool set a voice session exposes:
// the declarations sent in the session config and the local handlers that
// execute model-issued calls.
package assistant

import (
	"reflect"
	"strings"

	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// schemaFor derives a parameter schema from a tool input struct.
// Supported struct tags:
//   - json:"name"        - field name in JSON
//   - desc:"description" - field description
//   - enum:"a,b,c"       - enum values
//
// Fields are required unless they are pointers or tagged omitempty.
func schemaFor(v any) *protocol.JSONSchema {
	t := reflect.TypeOf(v)
	if t == nil {
		return &protocol.JSONSchema{}
	}
	return schemaFromType(t)
}

func schemaFromType(t reflect.Type) *protocol.JSONSchema {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Slice, reflect.Array:
		return &protocol.JSONSchema{Type: "array", Items: schemaFromType(t.Elem())}
	case reflect.String:
		return &protocol.JSONSchema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &protocol.JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &protocol.JSONSchema{Type: "number"}
	case reflect.Bool:
		return &protocol.JSONSchema{Type: "boolean"}
	case reflect.Map:
		return &protocol.JSONSchema{Type: "object"}
	default:
		return &protocol.JSONSchema{Type: "string"}
	}
}

func objectSchema(t reflect.Type) *protocol.JSONSchema {
	schema := &protocol.JSONSchema{
		Type:       "object",
		Properties: map[string]*protocol.JSONSchema{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, part := range parts[1:] {
				if part == "omitempty" {
					omitempty = true
				}
			}
		}

		fieldSchema := schemaFromType(field.Type)
		if desc := field.Tag.Get("desc"); desc != "" {
			fieldSchema.Description = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			fieldSchema.Enum = splitEnumTag(enum)
		}
		schema.Properties[name] = fieldSchema

		if !omitempty && field.Type.Kind() != reflect.Ptr {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

func splitEnumTag(s string) []string {
	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
