package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/wolfeidau/orgs/internal/models"
)

// ErrInvalidPolicy is returned for documents that fail schema validation or
// carry a statement level that is not a non-negative integer.
var ErrInvalidPolicy = errors.New("invalid permissions policy")

const (
	VersionOwnersOnly = 0
	VersionStatement  = 1
)

// DefaultDocument is the policy every new organization starts with.
var DefaultDocument = json.RawMessage(`{"version":0}`)

// documentSchema is compiled once and shared read-only by every evaluation.
var documentSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"version": {Type: "number"},
			"statement": {
				Type: "object",
				AdditionalProperties: &jsonschema.Schema{
					AnyOf: []*jsonschema.Schema{
						{Type: "string"},
						{Type: "number"},
					},
				},
			},
		},
		Required: []string{"version"},
	}
	return schema.Resolve(nil)
})

// Document is a parsed, validated permissions policy.
type Document struct {
	Version float64

	// Statement maps action names to the level they require. Only read for
	// version 1 documents.
	Statement map[string]models.PermissionLevel
}

// Parse validates raw against the policy schema and decodes it.
func Parse(raw json.RawMessage) (*Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidPolicy)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	resolved, err := documentSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile policy schema: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	obj, ok := instance.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document must be an object", ErrInvalidPolicy)
	}
	version, ok := obj["version"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: version must be a number", ErrInvalidPolicy)
	}

	doc := &Document{
		Version:   version,
		Statement: map[string]models.PermissionLevel{},
	}

	statement, _ := obj["statement"].(map[string]any)
	for action, value := range statement {
		level, err := parseLevel(value)
		if err != nil {
			return nil, fmt.Errorf("%w: statement %q: %v", ErrInvalidPolicy, action, err)
		}
		doc.Statement[action] = level
	}

	return doc, nil
}

// Validate reports whether raw is an acceptable policy document.
func Validate(raw json.RawMessage) error {
	_, err := Parse(raw)
	return err
}

// parseLevel accepts a number or a base-10 string holding a non-negative integer.
func parseLevel(value any) (models.PermissionLevel, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("level %q is not an integer", v)
		}
		n = float64(i)
	default:
		return 0, fmt.Errorf("unsupported level type %T", value)
	}

	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("level %v is not a non-negative integer", value)
	}

	return models.PermissionLevel(n), nil
}

// Requirement returns the permission level action needs under the document.
// A zero level means no membership check is performed. ok is false for
// unrecognized versions, which deny every action.
func (d *Document) Requirement(action Action) (level models.PermissionLevel, ok bool) {
	switch d.Version {
	case VersionOwnersOnly:
		return models.PermissionLevelOwner, true
	case VersionStatement:
		// absent actions are unrestricted
		return d.Statement[string(action)], true
	default:
		return 0, false
	}
}
