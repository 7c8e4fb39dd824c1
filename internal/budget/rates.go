// Package budget tracks model spend against daily and monthly ceilings
// and selects models by cost tier.
package budget

import "github.com/rfoley/loom/pkg/models"

// Model identifiers for each cost tier.
const (
	// ModelPremium is the premium-tier model for high-complexity work.
	ModelPremium = "claude-opus-4-5-20251101"
	// ModelMid is the mid-tier general-purpose model.
	ModelMid = "claude-sonnet-4-20250514"
	// ModelBudget is the lowest-cost hosted model.
	ModelBudget = "claude-3-5-haiku-20241022"
	// ModelLocalGeneral is the local general-purpose model.
	ModelLocalGeneral = "llama3.1:8b"
	// ModelLocalCode is the local code-specialized model.
	ModelLocalCode = "codellama:13b"
	// ModelLocalFast is the local fast general model.
	ModelLocalFast = "mistral:7b"
)

// Rate holds per-model pricing in USD per 1K tokens.
type Rate struct {
	Input  float64
	Output float64
}

// rates is the static pricing table. Local models cost nothing.
var rates = map[string]Rate{
	ModelPremium:      {Input: 0.015, Output: 0.075},
	ModelMid:          {Input: 0.003, Output: 0.015},
	ModelBudget:       {Input: 0.0008, Output: 0.004},
	ModelLocalGeneral: {Input: 0, Output: 0},
	ModelLocalCode:    {Input: 0, Output: 0},
	ModelLocalFast:    {Input: 0, Output: 0},
}

// RateFor returns the pricing for a model. Unknown models are billed
// at the mid-tier rate rather than silently free.
func RateFor(model string) Rate {
	if r, ok := rates[model]; ok {
		return r
	}
	return rates[ModelMid]
}

// IsLocal reports whether the model runs on the local inference host.
func IsLocal(model string) bool {
	switch model {
	case ModelLocalGeneral, ModelLocalCode, ModelLocalFast:
		return true
	}
	return false
}

// localModelFor picks the local model best suited to the task.
func localModelFor(complexity models.Complexity) string {
	switch complexity {
	case models.ComplexityHigh, models.ComplexityMedium:
		return ModelLocalGeneral
	case models.ComplexityCode:
		return ModelLocalCode
	default:
		return ModelLocalFast
	}
}
