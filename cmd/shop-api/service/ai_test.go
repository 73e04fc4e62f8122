package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/genai"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

func TestAIGenerate_Description(t *testing.T) {
	store := newFakeStore()
	mug := store.addProduct("Stoneware mug", 1250, 5)
	repo := &fakeAIRepo{}
	gen := &fakeGenerator{text: "  A mug for slow mornings.  "}
	svc := NewAIService(repo, gen, fakeProducts{store}, logger.Discard())

	g, err := svc.Generate(context.Background(), "alice", models.GenerateRequest{
		ProductID: &mug.ID,
		Kind:      models.KindDescription,
		Prompt:    "mention it is dishwasher safe",
	})
	require.NoError(t, err)
	assert.Equal(t, "A mug for slow mornings.", g.Output)
	assert.Equal(t, "gemini-test", g.Model)
	assert.Equal(t, &mug.ID, g.ProductID)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Stoneware mug")
	assert.Contains(t, gen.prompts[0], "12.50 USD")
	assert.Contains(t, gen.prompts[0], "dishwasher safe")

	require.Len(t, repo.generations, 1)
	assert.Empty(t, repo.audits)

	list, err := svc.ListGenerations(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAIGenerate_Validation(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{text: "x"}
	svc := NewAIService(&fakeAIRepo{}, gen, fakeProducts{store}, logger.Discard())
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.GenerateRequest
		want error
	}{
		{"unknown kind", models.GenerateRequest{Kind: "poem", Prompt: "x"}, ErrValidation},
		{"freeform needs prompt", models.GenerateRequest{}, ErrValidation},
		{"description needs product", models.GenerateRequest{Kind: models.KindDescription}, ErrValidation},
		{"reply needs message", models.GenerateRequest{Kind: models.KindReply}, ErrValidation},
		{"unknown product", models.GenerateRequest{Kind: models.KindTitle, ProductID: ptr(uuid.New())}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(ctx, "alice", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, gen.prompts, "invalid requests never reach the model")
}

func TestAIGenerate_QuotaIsAudited(t *testing.T) {
	repo := &fakeAIRepo{}
	gen := &fakeGenerator{err: fmt.Errorf("gemini: %w", genai.ErrQuotaExceeded)}
	svc := NewAIService(repo, gen, fakeProducts{newFakeStore()}, logger.Discard())

	_, err := svc.Generate(context.Background(), "alice", models.GenerateRequest{Prompt: "tagline for a mug shop"})
	require.ErrorIs(t, err, genai.ErrQuotaExceeded)

	assert.Empty(t, repo.generations)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, genai.ErrQuotaExceeded.Error(), repo.audits[0].Error)
	assert.Equal(t, models.KindFreeform, repo.audits[0].Kind)
}

func ptr[T any](v T) *T { return &v }
