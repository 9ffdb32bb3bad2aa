// Package schemafile loads model definitions from YAML into a model registry.
//
// A schema file lists models with their keys and embedded associations:
//
//	models:
//	  - name: Address
//	    embeddable: true
//	    keys:
//	      - {name: city, type: string, required: true}
//	  - name: Person
//	    keys:
//	      - {name: name, type: string, required: true, length: [1, 80]}
//	      - {name: tags, type: array, typecast: string}
//	    embeds:
//	      - {name: address, model: Address}
//	  - name: Admin
//	    parent: Person
//
// Models are defined in dependency order, so a model may refer to a parent,
// key type or embedded target declared later in the file.
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/model"
	"github.com/conduit-lang/docmap/internal/orm/schema"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

var (
	// ErrUnknownType is returned when a key type names neither a built-in
	// type nor an embeddable model
	ErrUnknownType = errors.New("unknown key type")
	// ErrUnknownReference is returned when a parent or embedded model is
	// not defined
	ErrUnknownReference = errors.New("unknown model reference")
	// ErrCycle is returned when models depend on each other circularly
	ErrCycle = errors.New("circular model dependency")
)

// File is a parsed schema file
type File struct {
	Models []ModelDef `yaml:"models"`
}

// ModelDef describes one model
type ModelDef struct {
	Name       string     `yaml:"name"`
	Parent     string     `yaml:"parent,omitempty"`
	Embeddable bool       `yaml:"embeddable,omitempty"`
	Keys       []KeyDef   `yaml:"keys,omitempty"`
	Embeds     []EmbedDef `yaml:"embeds,omitempty"`
}

// KeyDef describes one key and its options
type KeyDef struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type,omitempty"`
	Required bool          `yaml:"required,omitempty"`
	Unique   bool          `yaml:"unique,omitempty"`
	Numeric  bool          `yaml:"numeric,omitempty"`
	Index    bool          `yaml:"index,omitempty"`
	Format   string        `yaml:"format,omitempty"`
	In       []interface{} `yaml:"in,omitempty"`
	NotIn    []interface{} `yaml:"not_in,omitempty"`
	Length   *Length       `yaml:"length,omitempty"`
	Default  interface{}   `yaml:"default,omitempty"`
	Typecast string        `yaml:"typecast,omitempty"`
}

// EmbedDef describes an embedded association
type EmbedDef struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
	Many  bool   `yaml:"many,omitempty"`
}

// Length holds a length option in any of its YAML spellings: an integer
// maximum, a [min, max] pair, or a mapping of minimum, maximum and is.
type Length struct {
	Value interface{}
}

// UnmarshalYAML implements custom YAML unmarshaling for Length
func (l *Length) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("length: %w", err)
		}
		l.Value = n
		return nil

	case yaml.SequenceNode:
		var pair []int
		if err := node.Decode(&pair); err != nil {
			return fmt.Errorf("length: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("length: expected [min, max], got %d values", len(pair))
		}
		l.Value = validation.Range{Min: pair[0], Max: pair[1]}
		return nil

	case yaml.MappingNode:
		var opts struct {
			Minimum *int   `yaml:"minimum"`
			Maximum *int   `yaml:"maximum"`
			Is      *int   `yaml:"is"`
			Message string `yaml:"message"`
		}
		if err := node.Decode(&opts); err != nil {
			return fmt.Errorf("length: %w", err)
		}
		l.Value = validation.LengthOptions{
			Minimum: opts.Minimum,
			Maximum: opts.Maximum,
			Is:      opts.Is,
			Message: opts.Message,
		}
		return nil

	default:
		return fmt.Errorf("length: unexpected YAML node kind %v", node.Kind)
	}
}

// Parse parses YAML data into a File
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return &f, nil
}

// Load reads a schema from r and defines its models on reg
func Load(r io.Reader, reg *model.Registry) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return err
	}
	return f.Apply(reg)
}

// LoadFile loads the schema file at path into reg
func LoadFile(path string, reg *model.Registry) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open schema file %s: %w", path, err)
	}
	defer file.Close()

	if err := Load(file, reg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Apply defines every model of f on reg. Models already present in reg may
// be referenced but are not redefined.
func (f *File) Apply(reg *model.Registry) error {
	l := &loader{
		reg:  reg,
		defs: make(map[string]*ModelDef, len(f.Models)),
	}
	graph := schema.NewDependencyGraph()
	for i := range f.Models {
		def := &f.Models[i]
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("model %d: %w", i, model.ErrInvalidModelName)
		}
		if _, dup := l.defs[def.Name]; dup {
			return fmt.Errorf("%w: %s", model.ErrDuplicateModel, def.Name)
		}
		l.defs[def.Name] = def
		graph.AddNode(def.Name)
	}

	for i := range f.Models {
		def := &f.Models[i]
		for _, dep := range l.dependencies(def) {
			if _, ok := l.defs[dep]; ok {
				graph.AddEdge(def.Name, dep)
				continue
			}
			if _, exists := reg.Lookup(dep); !exists {
				return fmt.Errorf("model %s: %w: %s", def.Name, ErrUnknownReference, dep)
			}
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCycle, err)
	}
	for _, name := range order {
		if err := l.define(l.defs[name]); err != nil {
			return err
		}
	}

	reg.Logger().Debug("schema loaded", zap.Int("models", len(f.Models)))
	return nil
}

type loader struct {
	reg  *model.Registry
	defs map[string]*ModelDef
}

// dependencies lists the models def refers to by name
func (l *loader) dependencies(def *ModelDef) []string {
	var deps []string
	if def.Parent != "" {
		deps = append(deps, def.Parent)
	}
	for _, e := range def.Embeds {
		deps = append(deps, e.Model)
	}
	for _, k := range def.Keys {
		for _, t := range []string{k.Type, k.Typecast} {
			if t == "" {
				continue
			}
			if _, builtin := coerce.Lookup(t); !builtin {
				deps = append(deps, t)
			}
		}
	}
	return deps
}

func (l *loader) define(def *ModelDef) error {
	var opts []model.ModelOption
	if def.Embeddable {
		opts = append(opts, model.Embeddable())
	}

	var (
		m   *model.Model
		err error
	)
	if def.Parent != "" {
		parent, ok := l.reg.Lookup(def.Parent)
		if !ok {
			return fmt.Errorf("model %s: %w: %s", def.Name, ErrUnknownReference, def.Parent)
		}
		m, err = parent.Subclass(def.Name, opts...)
	} else {
		m, err = l.reg.Define(def.Name, opts...)
	}
	if err != nil {
		return err
	}

	for _, k := range def.Keys {
		typ, err := l.resolveType(k.Type)
		if err != nil {
			return fmt.Errorf("model %s key %s: %w", def.Name, k.Name, err)
		}
		keyOpts, err := l.options(k)
		if err != nil {
			return fmt.Errorf("model %s key %s: %w", def.Name, k.Name, err)
		}
		if _, err := m.DeclareKey(k.Name, typ, keyOpts); err != nil {
			return err
		}
	}

	for _, e := range def.Embeds {
		target, ok := l.reg.Lookup(e.Model)
		if !ok {
			return fmt.Errorf("model %s: %w: %s", def.Name, ErrUnknownReference, e.Model)
		}
		if e.Many {
			_, err = m.EmbedMany(e.Name, target)
		} else {
			_, err = m.EmbedOne(e.Name, target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) options(k KeyDef) (schema.Options, error) {
	opts := schema.Options{
		Required: k.Required,
		Unique:   k.Unique,
		Numeric:  k.Numeric,
		Index:    k.Index,
		In:       k.In,
		NotIn:    k.NotIn,
		Default:  k.Default,
	}
	if k.Format != "" {
		opts.Format = k.Format
	}
	if k.Length != nil {
		opts.Length = k.Length.Value
	}
	if k.Typecast != "" {
		elem, err := l.resolveType(k.Typecast)
		if err != nil {
			return schema.Options{}, err
		}
		opts.Typecast = elem
	}
	return opts, nil
}

// resolveType maps a type name to a built-in type or an embeddable model.
// An empty name declares an untyped key.
func (l *loader) resolveType(name string) (coerce.Type, error) {
	if name == "" {
		return nil, nil
	}
	if t, ok := coerce.Lookup(name); ok {
		return t, nil
	}
	m, ok := l.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	if !m.IsEmbeddable() {
		return nil, fmt.Errorf("%s: %w", name, model.ErrNotEmbeddable)
	}
	return m, nil
}
