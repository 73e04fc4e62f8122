package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/genai"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/metrics"
	"github.com/lyzr/storefront/common/models"
)

const (
	maxPromptLength    = 4000
	generationsPerPage = 50
)

// AIRepository is the storage used by AIService
type AIRepository interface {
	SaveGeneration(ctx context.Context, g *models.Generation) error
	SaveAudit(ctx context.Context, e *models.AuditEntry) error
	ListGenerations(ctx context.Context, userID string, limit int) ([]models.Generation, error)
}

// Generator produces text from a prompt (satisfied by *genai.Client)
type Generator interface {
	Generate(ctx context.Context, prompt string) (genai.Result, error)
	Model() string
}

// AIService generates product and support copy
type AIService struct {
	repo     AIRepository
	gen      Generator
	products ProductReader
	log      *logger.Logger
}

// NewAIService creates a new AI service
func NewAIService(repo AIRepository, gen Generator, products ProductReader, log *logger.Logger) *AIService {
	return &AIService{
		repo:     repo,
		gen:      gen,
		products: products,
		log:      log,
	}
}

// Generate runs one generation. Every attempt is recorded: successes in
// ai_generations, failures in ai_audit_log with the shopper-facing message.
// Quota exhaustion comes back as genai.ErrQuotaExceeded.
func (s *AIService) Generate(ctx context.Context, userID string, req models.GenerateRequest) (*models.Generation, error) {
	if req.Kind == "" {
		req.Kind = models.KindFreeform
	}
	if !req.Kind.Valid() {
		return nil, invalid("unknown generation kind %q", req.Kind)
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if len(req.Prompt) > maxPromptLength {
		return nil, invalid("prompt is longer than %d characters", maxPromptLength)
	}

	prompt, err := s.buildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		outcome := "error"
		if errors.Is(err, genai.ErrQuotaExceeded) {
			outcome = "quota"
		}
		metrics.RecordGeneration(outcome)

		entry := &models.AuditEntry{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      req.Kind,
			Prompt:    req.Prompt,
			Error:     genai.UserMessage(err),
			CreatedAt: time.Now().UTC(),
		}
		if auditErr := s.repo.SaveAudit(ctx, entry); auditErr != nil {
			s.log.Error("failed to write AI audit entry", "error", auditErr)
		}

		s.log.Warn("AI generation failed", "user_id", userID, "kind", req.Kind, "outcome", outcome, "error", err)
		return nil, fmt.Errorf("generate %s: %w", req.Kind, err)
	}
	metrics.RecordGeneration("success")

	model := result.Model
	if model == "" {
		model = s.gen.Model()
	}
	g := &models.Generation{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: req.ProductID,
		Kind:      req.Kind,
		Prompt:    req.Prompt,
		Output:    strings.TrimSpace(result.Text),
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveGeneration(ctx, g); err != nil {
		return nil, err
	}

	s.log.Info("AI generation complete",
		"generation_id", g.ID,
		"kind", g.Kind,
		"model", g.Model,
		"output_tokens", result.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return g, nil
}

// ListGenerations returns the user's recent generations
func (s *AIService) ListGenerations(ctx context.Context, userID string) ([]models.Generation, error) {
	return s.repo.ListGenerations(ctx, userID, generationsPerPage)
}

func (s *AIService) buildPrompt(ctx context.Context, req models.GenerateRequest) (string, error) {
	var product *models.Product
	if req.ProductID != nil {
		p, err := s.products.Get(ctx, *req.ProductID)
		if err != nil {
			return "", err
		}
		product = p
	}

	var b strings.Builder
	switch req.Kind {
	case models.KindDescription, models.KindTitle:
		if product == nil {
			return "", invalid("product_id is required for %s", req.Kind)
		}
		if req.Kind == models.KindTitle {
			b.WriteString("Write one short, catchy product title (under 70 characters) for an online store. Reply with the title only.\n\n")
		} else {
			b.WriteString("Write an engaging product description of two short paragraphs for an online store. Do not invent specifications.\n\n")
		}
		writeProduct(&b, product)
		if req.Prompt != "" {
			b.WriteString("\nAdditional guidance: ")
			b.WriteString(req.Prompt)
		}
	case models.KindReply:
		if req.Prompt == "" {
			return "", invalid("prompt must contain the customer's message")
		}
		b.WriteString("You are a friendly customer support agent for an online store. Write a concise, helpful reply to this customer message.\n\n")
		if product != nil {
			writeProduct(&b, product)
			b.WriteString("\n")
		}
		b.WriteString("Customer message: ")
		b.WriteString(req.Prompt)
	default:
		if req.Prompt == "" {
			return "", invalid("prompt is required")
		}
		if product != nil {
			writeProduct(&b, product)
			b.WriteString("\n")
		}
		b.WriteString(req.Prompt)
	}
	return b.String(), nil
}

func writeProduct(b *strings.Builder, p *models.Product) {
	fmt.Fprintf(b, "Product: %s\nCategory: %s\nPrice: %.2f %s\n", p.Name, p.Category, float64(p.PriceCents)/100, p.Currency)
	if p.Description != "" {
		fmt.Fprintf(b, "Current description: %s\n", p.Description)
	}
}
