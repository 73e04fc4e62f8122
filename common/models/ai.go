package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationKind selects the prompt template for AI copy generation
type GenerationKind string

const (
	KindDescription GenerationKind = "description"
	KindTitle       GenerationKind = "title"
	KindReply       GenerationKind = "support_reply"
	KindFreeform    GenerationKind = "freeform"
)

// Valid reports whether k is a known kind
func (k GenerationKind) Valid() bool {
	switch k {
	case KindDescription, KindTitle, KindReply, KindFreeform:
		return true
	}
	return false
}

// GenerateRequest is the body of POST /ai/generate
type GenerateRequest struct {
	ProductID *uuid.UUID     `json:"product_id,omitempty"`
	Kind      GenerationKind `json:"kind"`
	Prompt    string         `json:"prompt"`
}

// Generation is a successful AI generation
// Maps to: ai_generations table
type Generation struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	ProductID *uuid.UUID     `db:"product_id" json:"product_id,omitempty"`
	Kind      GenerationKind `db:"kind" json:"kind"`
	Prompt    string         `db:"prompt" json:"prompt"`
	Output    string         `db:"output" json:"output"`
	Model     string         `db:"model" json:"model"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// AuditEntry records a failed AI attempt
// Maps to: ai_audit_log table
type AuditEntry struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Kind      GenerationKind `db:"kind" json:"kind"`
	Prompt    string         `db:"prompt" json:"prompt"`
	Error     string         `db:"error" json:"error"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
