package gemini

import (
	"context"
	"testing"

	"removal-agent/internal/domain/entity"
	"removal-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertMessages(t *testing.T) {
	contents, system := convertMessages([]entity.Message{
		{Role: entity.RoleSystem, Content: "Be terse."},
		{Role: entity.RoleUser, Content: "pick"},
		{Role: entity.RoleAssistant, Content: "2"},
	})

	assert.Equal(t, "Be terse.", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "2", contents[1].Parts[0].Text)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "3"}, {Text: ""}}}},
			{Content: nil},
		},
	}
	assert.Equal(t, "3", responseText(resp))
}

func TestNewAdapter_RequiresKey(t *testing.T) {
	_, err := NewAdapter(context.Background(), Config{}, logger.Nop())
	assert.Error(t, err)
}
