// internal/workers/assistant/analyze-resume/models.go
package analyzeresume

import "regexp"

// ResumeIDPattern is what a typed message must look like to be treated as a resume id.
var ResumeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)

const (
	StatusTemplate   = "Analyzing resume with ID: %s..."
	FailurePrefix    = "Error analyzing resume: "
	DefaultSummary   = "I've analyzed the resume and found some insights. Check the analysis sidebar for details."
	MissingSection   = "No information available for this section."
	InvalidFormatMsg = "Received invalid response format"

	NoResumeMsg = "Please upload a resume or provide a resume ID first so I can help you analyze it."
	FollowUpMsg = "I can analyze this resume but can't answer specific questions about it yet. Please check the analysis sections."
)

// ShapeAnalysis tags history replies that carry a completed analysis.
const ShapeAnalysis = "analysis"

// SectionDef is one entry of the analysis sidebar.
type SectionDef struct {
	ID    string
	Label string
}

var Sections = []SectionDef{
	{ID: "overview", Label: "Overview"},
	{ID: "skills", Label: "Skills"},
	{ID: "experience", Label: "Experience"},
	{ID: "education", Label: "Education"},
	{ID: "recommendations", Label: "Recommendations"},
}

type Input struct {
	ResumeID  string `json:"resumeId"`
	SessionID string `json:"sessionId,omitempty"`
}

type Section struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Content string `json:"content"`
	// Available is false when the analysis had nothing for this section.
	Available bool `json:"available"`
}

type Output struct {
	ResumeID   string    `json:"resumeId"`
	SessionID  string    `json:"sessionId"`
	Summary    string    `json:"summary"`
	Sections   []Section `json:"sections,omitempty"`
	Failed     bool      `json:"failed"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	DurationMs int64     `json:"durationMs"`
}

type webhookPayload struct {
	ID string `json:"id"`
}
