package models

// Complexity classifies a stage's work for model selection.
type Complexity string

const (
	// ComplexityLow is for lightweight work like documentation.
	ComplexityLow Complexity = "low"
	// ComplexityMedium is for standard analysis and integration work.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh is for architecture and design work.
	ComplexityHigh Complexity = "high"
	// ComplexityCode is for code-generation heavy work, routed to
	// code-specialized models when budget pressure forces the local tier.
	ComplexityCode Complexity = "code"
)

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityCode:
		return true
	default:
		return false
	}
}
