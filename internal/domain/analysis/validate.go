package analysis

import "strings"

// Validate checks the mode-specific preconditions of a request.
// A target supplied with GENERAL_ANALYSIS is ignored.
func Validate(t Type, target string) error {
	switch t {
	case TypeObjectDetection:
		if strings.TrimSpace(target) == "" {
			return &ValidationError{Reason: ReasonTargetRequired}
		}
		return nil
	case TypeGeneralAnalysis:
		return nil
	default:
		return &ValidationError{Reason: ReasonUnsupportedType}
	}
}
