package record

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	kindInstance = "instance"
	kindBinding  = "binding"
	kindStatus   = "status"
)

var (
	// ErrMissingField is wrapped by DecodeError when a required field is absent
	ErrMissingField = errors.New("required field is missing")

	// ErrWrongType is wrapped by DecodeError when a field has an unexpected YAML type
	ErrWrongType = errors.New("field has wrong type")

	// ErrInvalidValue is wrapped by DecodeError when a field has a value outside its domain
	ErrInvalidValue = errors.New("field has invalid value")
)

// DecodeError reports on-disk content that is present but malformed or schema-invalid
type DecodeError struct {
	// Kind is the record kind being decoded (instance, binding or status)
	Kind string

	// Field is the offending field, empty when the document itself is malformed
	Field string

	Err error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s record: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("malformed %s record: field %q: %v", e.Kind, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeInstance serializes an instance record
func EncodeInstance(inst *Instance) ([]byte, error) {
	return encode(inst)
}

// EncodeBinding serializes a binding record
func EncodeBinding(b *Binding) ([]byte, error) {
	return encode(b)
}

// EncodeStatus serializes an operation status
func EncodeStatus(s *Status) ([]byte, error) {
	return encode(s)
}

// DecodeInstance parses an instance record. Unknown fields are ignored; missing
// or mistyped required fields fail with a *DecodeError.
func DecodeInstance(data []byte) (*Instance, error) {
	doc, err := parseDocument(kindInstance, data)
	if err != nil {
		return nil, err
	}

	inst := &Instance{}
	if inst.ID, err = doc.requiredString("id"); err != nil {
		return nil, err
	}
	if inst.ServiceDefinitionID, err = doc.requiredString("serviceDefinitionId"); err != nil {
		return nil, err
	}
	if inst.PlanID, err = doc.requiredString("planId"); err != nil {
		return nil, err
	}
	if inst.Parameters, err = doc.optionalMap("parameters"); err != nil {
		return nil, err
	}
	if inst.Context, err = doc.optionalMap("context"); err != nil {
		return nil, err
	}
	if inst.Deleted, err = doc.optionalBool("deleted"); err != nil {
		return nil, err
	}
	return inst, nil
}

// DecodeBinding parses a binding record with the same rules as DecodeInstance
func DecodeBinding(data []byte) (*Binding, error) {
	doc, err := parseDocument(kindBinding, data)
	if err != nil {
		return nil, err
	}

	b := &Binding{}
	if b.BindingID, err = doc.requiredString("bindingId"); err != nil {
		return nil, err
	}
	if b.ServiceInstanceID, err = doc.requiredString("serviceInstanceId"); err != nil {
		return nil, err
	}
	if b.ServiceDefinitionID, err = doc.requiredString("serviceDefinitionId"); err != nil {
		return nil, err
	}
	if b.PlanID, err = doc.requiredString("planId"); err != nil {
		return nil, err
	}
	if b.Parameters, err = doc.optionalMap("parameters"); err != nil {
		return nil, err
	}
	if b.BindResource, err = doc.optionalMap("bindResource"); err != nil {
		return nil, err
	}
	if b.Deleted, err = doc.optionalBool("deleted"); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeStatus parses an operation status. Both fields are required and the
// state must be one of the known values.
func DecodeStatus(data []byte) (*Status, error) {
	doc, err := parseDocument(kindStatus, data)
	if err != nil {
		return nil, err
	}

	state, err := doc.requiredString("status")
	if err != nil {
		return nil, err
	}
	if !State(state).Valid() {
		return nil, &DecodeError{
			Kind:  kindStatus,
			Field: "status",
			Err:   fmt.Errorf("%w: %q", ErrInvalidValue, state),
		}
	}

	description, err := doc.requiredString("description")
	if err != nil {
		return nil, err
	}

	return &Status{State: State(state), Description: description}, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeMap returns m in the form the decoders produce for it: whole
// numbers of any Go numeric type become int, other numbers float64, nested
// objects map[string]any and lists []any. An empty or nil map yields nil.
// Records built from normalized maps survive an encode and decode unchanged,
// which lets callers compare a request with a stored record.
func NormalizeMap(m map[string]any) (map[string]any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode map: %w", err)
	}
	var normalized map[string]any
	if err := yaml.Unmarshal(data, &normalized); err != nil {
		return nil, fmt.Errorf("failed to decode map: %w", err)
	}
	if len(normalized) == 0 {
		return nil, nil
	}
	return normalized, nil
}

// document is the top-level mapping of a record file, keyed by field name
type document struct {
	kind   string
	fields map[string]*yaml.Node
}

func parseDocument(kind string, data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &DecodeError{Kind: kind, Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &DecodeError{Kind: kind, Err: errors.New("empty document")}
	}

	mapping := resolveAlias(root.Content[0])
	if mapping.Kind != yaml.MappingNode {
		return nil, &DecodeError{
			Kind: kind,
			Err:  fmt.Errorf("%w: expected a mapping, got %s", ErrWrongType, mapping.ShortTag()),
		}
	}

	doc := &document{kind: kind, fields: make(map[string]*yaml.Node, len(mapping.Content)/2)}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		doc.fields[mapping.Content[i].Value] = resolveAlias(mapping.Content[i+1])
	}
	return doc, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// lookup returns the node of a field, treating an explicit null like an absent field
func (d *document) lookup(name string) (*yaml.Node, bool) {
	n, ok := d.fields[name]
	if !ok || n.ShortTag() == "!!null" {
		return nil, false
	}
	return n, true
}

func (d *document) wrongType(name string, n *yaml.Node, want string) error {
	return &DecodeError{
		Kind:  d.kind,
		Field: name,
		Err:   fmt.Errorf("%w: expected %s, got %s", ErrWrongType, want, n.ShortTag()),
	}
}

func (d *document) requiredString(name string) (string, error) {
	n, ok := d.lookup(name)
	if !ok {
		return "", &DecodeError{Kind: d.kind, Field: name, Err: ErrMissingField}
	}
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", d.wrongType(name, n, "string")
	}
	return n.Value, nil
}

func (d *document) optionalBool(name string) (bool, error) {
	n, ok := d.lookup(name)
	if !ok {
		return false, nil
	}
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false, d.wrongType(name, n, "bool")
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, &DecodeError{Kind: d.kind, Field: name, Err: err}
	}
	return v, nil
}

func (d *document) optionalMap(name string) (map[string]any, error) {
	n, ok := d.lookup(name)
	if !ok {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, d.wrongType(name, n, "mapping")
	}
	var v map[string]any
	if err := n.Decode(&v); err != nil {
		return nil, &DecodeError{Kind: d.kind, Field: name, Err: err}
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}
