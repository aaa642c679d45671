package entities

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/models/content"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const schemaBaseURL = "https://gavelogy.local/entities/"

//go:embed config/*.yaml
var configFiles embed.FS

// Entity describes where one entity type lives
type Entity struct {
	Type         content.EntityType `yaml:"-" json:"type"`
	Table        string             `yaml:"table" json:"table"`
	ScopeColumn  string             `yaml:"scope_column" json:"scope_column,omitempty"`
	ParentColumn string             `yaml:"parent_column" json:"parent_column,omitempty"`
	DraftTable   string             `yaml:"draft_table" json:"draft_table,omitempty"`

	// Schema is a JSON Schema for change data. Changes carry partial
	// records, so it constrains the columns present and their values only.
	Schema map[string]interface{} `yaml:"schema" json:"-"`
}

type registryFile struct {
	Entities map[string]Entity `yaml:"entities"`
}

// Registry maps entity types to their tables
type Registry struct {
	entities map[content.EntityType]Entity
	schemas  map[content.EntityType]*jsonschema.Schema
	mu       sync.RWMutex
}

// NewRegistry loads the embedded entity definitions
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/entities.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read entity registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a registry from YAML
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity registry: %w", err)
	}

	r := &Registry{
		entities: make(map[content.EntityType]Entity, len(file.Entities)),
		schemas:  make(map[content.EntityType]*jsonschema.Schema),
	}
	compiler := jsonschema.NewCompiler()
	for name, entity := range file.Entities {
		if entity.Table == "" {
			return nil, fmt.Errorf("entity %q has no table", name)
		}
		entity.Type = content.EntityType(name)
		r.entities[entity.Type] = entity

		if entity.Schema == nil {
			continue
		}
		schema, err := compileSchema(compiler, name, entity.Schema)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
		r.schemas[entity.Type] = schema
	}
	return r, nil
}

func compileSchema(compiler *jsonschema.Compiler, name string, raw map[string]interface{}) (*jsonschema.Schema, error) {
	doc, err := toJSONValue(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	url := schemaBaseURL + name + ".json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// toJSONValue converts Go values (ints, time.Time, typed strings) into the
// generic JSON form the validator expects
func toJSONValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// ValidateFields checks change data against the entity's schema.
// Entities without a schema accept any fields.
func (r *Registry) ValidateFields(entityType content.EntityType, fields content.Fields) error {
	r.mu.RLock()
	schema, ok := r.schemas[entityType]
	r.mu.RUnlock()
	if !ok || fields == nil {
		return nil
	}

	doc, err := toJSONValue(fields)
	if err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("%s data is not serializable: %v", entityType, err)}
	}
	if err := schema.Validate(doc); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid %s data: %v", entityType, err)}
	}
	return nil
}

// Get returns the definition of an entity type
func (r *Registry) Get(entityType content.EntityType) (Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[entityType]
	if !ok {
		return Entity{}, &domain.ValidationError{
			Message: fmt.Sprintf("unknown entity type: %s", entityType),
		}
	}
	return entity, nil
}

// TableFor returns the table an entity type is persisted in
func (r *Registry) TableFor(entityType content.EntityType) (string, error) {
	entity, err := r.Get(entityType)
	if err != nil {
		return "", err
	}
	return entity.Table, nil
}

// Types lists registered entity types in name order
func (r *Registry) Types() []content.EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]content.EntityType, 0, len(r.entities))
	for t := range r.entities {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
