package service

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/lyzr/storefront/common/models"
)

// FilterEvaluator evaluates CEL product filters such as
// `product.price_cents < 5000 && product.stock > 0`
type FilterEvaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewFilterEvaluator creates a filter evaluator with program caching
func NewFilterEvaluator() (*FilterEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("product", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return &FilterEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Compile compiles and caches an expression. Errors wrap ErrValidation.
func (e *FilterEvaluator) Compile(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()
	if exists {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, invalid("filter: %v", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, invalid("filter must be a boolean expression, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, invalid("filter: %v", err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()

	return prg, nil
}

// Apply returns the products for which expr is true
func (e *FilterEvaluator) Apply(expr string, products []models.Product) ([]models.Product, error) {
	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		val, _, err := prg.Eval(map[string]any{"product": productVars(p)})
		if err != nil {
			return nil, invalid("filter evaluation: %v", err)
		}
		match, ok := val.Value().(bool)
		if !ok {
			return nil, invalid("filter did not return boolean, got %T", val.Value())
		}
		if match {
			out = append(out, p)
		}
	}
	return out, nil
}

// CacheSize returns the number of cached programs
func (e *FilterEvaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// productVars exposes a product to CEL under its JSON field names
func productVars(p models.Product) map[string]any {
	return map[string]any{
		"id":            p.ID.String(),
		"sku":           p.SKU,
		"name":          p.Name,
		"description":   p.Description,
		"category":      p.Category,
		"price_cents":   p.PriceCents,
		"currency":      p.Currency,
		"stock":         int64(p.Stock),
		"image_url":     p.ImageURL,
		"thumbnail_url": p.ThumbnailURL,
	}
}
