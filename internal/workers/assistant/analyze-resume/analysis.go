// internal/workers/assistant/analyze-resume/analysis.go
package analyzeresume

import (
	"strings"

	"research-assistant/internal/common/errors"
	"research-assistant/internal/normalizer"
)

// extractAnalysis finds the analysis object in a webhook reply. A plain
// text reply is the overview.
func extractAnalysis(raw normalizer.Value) (normalizer.Value, error) {
	switch raw.Kind() {
	case normalizer.KindString:
		return overviewOnly(raw), nil

	case normalizer.KindObject, normalizer.KindArray:
		if out := raw.Field("output"); out.Truthy() {
			switch out.Kind() {
			case normalizer.KindString:
				return overviewOnly(out), nil
			case normalizer.KindObject, normalizer.KindArray:
				return out, nil
			}
			return normalizer.Object(), nil
		}
		if errVal := raw.Field("error"); errVal.Truthy() {
			return normalizer.Value{}, errors.NewResumeAnalysisFailedError(inline(errVal))
		}
		return raw, nil
	}

	return normalizer.Value{}, errors.NewInvalidResponseFormatError(raw.Kind().String())
}

func overviewOnly(text normalizer.Value) normalizer.Value {
	return normalizer.Object(normalizer.Member{Key: "overview", Value: text})
}

// buildSections renders every sidebar section, falling back to MissingSection
// for falsy or absent content.
func buildSections(analysis normalizer.Value, n *normalizer.Normalizer) []Section {
	sections := make([]Section, 0, len(Sections))
	for _, def := range Sections {
		s := Section{ID: def.ID, Label: def.Label, Content: MissingSection}
		if v := analysis.Field(def.ID); v.Truthy() {
			if text := renderSection(v, n); strings.TrimSpace(text) != "" {
				s.Content = text
				s.Available = true
			}
		}
		sections = append(sections, s)
	}
	return sections
}

func renderSection(v normalizer.Value, n *normalizer.Normalizer) string {
	switch v.Kind() {
	case normalizer.KindString:
		return v.Str()
	case normalizer.KindArray:
		var b strings.Builder
		for _, item := range v.Items() {
			b.WriteString("- ")
			if item.IsObject() {
				b.WriteString(n.Normalize(item))
			} else {
				b.WriteString(inline(item))
			}
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n")
	case normalizer.KindObject:
		return n.Normalize(v)
	default:
		return inline(v)
	}
}

func inline(v normalizer.Value) string {
	if v.IsString() {
		return v.Str()
	}
	text, err := v.Serialize("")
	if err != nil {
		return ""
	}
	return text
}
