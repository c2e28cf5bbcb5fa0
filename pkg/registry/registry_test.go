// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/common/errors"
	analyzeresume "research-assistant/internal/workers/assistant/analyze-resume"
	normalizeagentresponse "research-assistant/internal/workers/assistant/normalize-agent-response"
	relaychatmessage "research-assistant/internal/workers/assistant/relay-chat-message"
)

func TestLoadRegistry_Shipped(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activities.json")
	require.NoError(t, err)

	knownCodes := map[string]bool{}
	for _, bpmnCode := range errors.BPMNErrorMapping {
		knownCodes[bpmnCode] = true
	}

	for _, taskType := range []string{relaychatmessage.TaskType, normalizeagentresponse.TaskType, analyzeresume.TaskType} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, "missing activity for %s", taskType)
		assert.NotEmpty(t, a.DisplayName)
		for _, code := range a.ErrorCodes {
			assert.True(t, knownCodes[code], "%s lists unknown error code %s", taskType, code)
		}
	}
	assert.Len(t, reg.Activities, 3)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing task type", `{"activities":[{"id":"a"}]}`},
		{"duplicate task type", `{"activities":[{"id":"a","taskType":"x"},{"id":"b","taskType":"x"}]}`},
		{"bad timeout", `{"activities":[{"id":"a","taskType":"x","timeout":"soon"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "activities.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := LoadRegistry(path)
			assert.Error(t, err)
		})
	}
}

func TestFind_Unknown(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{{ID: "a", TaskType: "x"}}}
	_, ok := reg.Find("y")
	assert.False(t, ok)
}
