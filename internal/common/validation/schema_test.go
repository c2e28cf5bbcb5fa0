// internal/common/validation/schema_test.go
package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Chat Request Tests
// ==========================

func TestChatRequestSchema(t *testing.T) {
	v := MustValidator(ChatRequestSchema)

	tests := []struct {
		name      string
		body      string
		valid     bool
		field     string
		errorCode string
	}{
		{"message only", `{"message":"What is RAG?"}`, true, "", ""},
		{"all fields", `{"message":"q","sessionId":"s-1","documentContext":{"id":"doc-1","name":"paper.pdf","size":2048},"metric":"users","timeRange":"7d","filter":"all"}`, true, "", ""},
		{"unknown fields allowed", `{"message":"q","extra":1}`, true, "", ""},
		{"null document context", `{"message":"q","documentContext":null}`, true, "", ""},
		{"document context not object", `{"message":"q","documentContext":"paper.pdf"}`, false, "documentContext", "INVALID_TYPE"},
		{"missing message", `{"sessionId":"s"}`, false, "message", "REQUIRED_FIELD_MISSING"},
		{"blank message", `{"message":"   "}`, false, "message", "PATTERN_MISMATCH"},
		{"empty message", `{"message":""}`, false, "message", "PATTERN_MISMATCH"},
		{"message not string", `{"message":42}`, false, "message", "INVALID_TYPE"},
		{"session id too long", `{"message":"q","sessionId":"` + strings.Repeat("a", 129) + `"}`, false, "sessionId", "MAX_LENGTH_VIOLATION"},
		{"not an object", `["message"]`, false, rootField, "INVALID_TYPE"},
		{"not json", `message=hi`, false, rootField, "INVALID_JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateDocument([]byte(tt.body))
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			require.True(t, result.HasErrors(tt.field), "errors: %v", result.GetErrorMessages())
			assert.Equal(t, tt.errorCode, result.GetErrorsForField(tt.field)[0].Code)
		})
	}
}

// ==========================
// Resume Request Tests
// ==========================

func TestResumeRequestSchema(t *testing.T) {
	v := MustValidator(ResumeRequestSchema)

	assert.True(t, v.ValidateDocument([]byte(`{"resumeId":"abcDEF0123456789_-xyz"}`)).Valid)

	short := v.ValidateDocument([]byte(`{"resumeId":"abc123"}`))
	assert.False(t, short.Valid)
	assert.True(t, short.HasErrors("resumeId"))

	badChars := v.ValidateDocument([]byte(`{"resumeId":"abc def 0123456789 xyz!"}`))
	assert.False(t, badChars.Valid)

	missing := v.ValidateDocument([]byte(`{}`))
	assert.False(t, missing.Valid)
	assert.Equal(t, "REQUIRED_FIELD_MISSING", missing.Errors[0].Code)
}

func TestValidateInput(t *testing.T) {
	v := MustValidator(ChatRequestSchema)

	assert.True(t, v.ValidateInput(map[string]interface{}{"message": "hello", "panel": "wiki-search"}).Valid)

	result := v.ValidateInput(map[string]interface{}{"message": true})
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("message"))
}

// ==========================
// Helper Tests
// ==========================

func TestNewValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustValidator(`not json`) })
}

func TestValidationResultHelpers(t *testing.T) {
	result := &ValidationResult{Errors: []ValidationError{
		{Field: "message", Message: "is required", Code: "REQUIRED_FIELD_MISSING"},
		{Field: "filters.metric", Message: "bad", Code: "INVALID_TYPE"},
		{Field: "sources[0]", Message: "bad", Code: "INVALID_TYPE"},
	}}

	assert.Equal(t, []string{"message: is required", "filters.metric: bad", "sources[0]: bad"}, result.GetErrorMessages())
	assert.Equal(t, "message: is required; filters.metric: bad; sources[0]: bad", result.Summary())
	assert.True(t, result.HasErrors("message"))
	assert.False(t, result.HasErrors("filters"))
	assert.Len(t, result.GetErrorsForField("filters"), 1)
	assert.Len(t, result.GetErrorsForField("sources"), 1)
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://n8n.example.com/webhook/search-wiki-ai-agent"))
	assert.True(t, ValidateURL("http://localhost:5678/webhook/x"))
	assert.False(t, ValidateURL("ftp://example.com/file"))
	assert.False(t, ValidateURL("not a url"))
}
