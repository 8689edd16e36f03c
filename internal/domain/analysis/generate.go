package analysis

import (
	"fmt"
	"strings"
)

const generalHeader = "The following objects were found in the image:"

// demo catalog, order matters for seeded draws
var catalog = [...]string{"phone", "laptop", "book", "cup", "glasses", "keys", "wallet", "pen"}

// Catalog returns a copy of the demo labels used by GENERAL_ANALYSIS.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog[:])
	return out
}

// Generate produces the synthetic result text for a validated request.
func Generate(t Type, target string, rng Rand) (string, error) {
	switch t {
	case TypeObjectDetection:
		return detectObject(target, rng), nil
	case TypeGeneralAnalysis:
		return describeScene(rng), nil
	default:
		return "", &ValidationError{Reason: ReasonUnsupportedType}
	}
}

func detectObject(target string, rng Rand) string {
	if rng.IntN(2) == 1 {
		count := rng.IntN(3) + 1
		return fmt.Sprintf("Found %d instance(s) of '%s' in the image.", count, target)
	}
	return fmt.Sprintf("Object '%s' was not found in the image.", target)
}

func describeScene(rng Rand) string {
	n := rng.IntN(3) + 2

	var b strings.Builder
	b.WriteString(generalHeader)
	b.WriteByte('\n')
	for i := 0; i < n; i++ {
		b.WriteString("- ")
		b.WriteString(catalog[rng.IntN(len(catalog))])
		b.WriteByte('\n')
	}
	return b.String()
}

// Items returns the itemized labels of a GENERAL_ANALYSIS result in order.
func Items(result string) []string {
	var out []string
	for _, line := range strings.Split(result, "\n") {
		if item, ok := strings.CutPrefix(line, "- "); ok {
			out = append(out, item)
		}
	}
	return out
}
