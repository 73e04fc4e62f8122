package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxPatchOperations caps the size of one product patch
const MaxPatchOperations = 50

// protectedPaths are product fields the server owns
var protectedPaths = map[string]bool{
	"/id":         true,
	"/created_at": true,
	"/updated_at": true,
}

// PatchValidator checks RFC 6902 documents aimed at catalog products before
// they are applied
type PatchValidator struct{}

// NewPatchValidator creates a new patch validator
func NewPatchValidator() *PatchValidator {
	return &PatchValidator{}
}

// Validate parses raw and validates every operation
func (v *PatchValidator) Validate(raw []byte) error {
	var operations []map[string]interface{}
	if err := json.Unmarshal(raw, &operations); err != nil {
		return fmt.Errorf("patch must be a JSON array of operations: %w", err)
	}
	return v.ValidateOperations(operations)
}

// ValidateOperations validates all patch operations
func (v *PatchValidator) ValidateOperations(operations []map[string]interface{}) error {
	if len(operations) == 0 {
		return fmt.Errorf("patch has no operations")
	}
	if len(operations) > MaxPatchOperations {
		return fmt.Errorf("patch has %d operations, at most %d allowed", len(operations), MaxPatchOperations)
	}

	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}
	}
	return nil
}

// validateOperation validates a single operation
func (v *PatchValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok || !strings.HasPrefix(path, "/") {
		return fmt.Errorf("operation %d: missing or invalid 'path' field", index)
	}

	switch opType {
	case "add", "replace", "test":
		if _, ok := op["value"]; !ok {
			return fmt.Errorf("operation %d: 'value' required for %s operation", index, opType)
		}
	case "remove":
	case "move", "copy":
		from, ok := op["from"].(string)
		if !ok {
			return fmt.Errorf("operation %d: 'from' required for %s operation", index, opType)
		}
		if opType == "move" && protectedPaths[topLevel(from)] {
			return fmt.Errorf("operation %d: %s cannot be modified", index, topLevel(from))
		}
	default:
		return fmt.Errorf("operation %d: unsupported operation type: %s", index, opType)
	}

	if opType != "test" && protectedPaths[topLevel(path)] {
		return fmt.Errorf("operation %d: %s cannot be modified", index, topLevel(path))
	}
	return nil
}

// topLevel returns the first segment of a JSON pointer, e.g. "/id/0" → "/id"
func topLevel(path string) string {
	if i := strings.Index(path[1:], "/"); i >= 0 {
		return path[:i+1]
	}
	return path
}
