package prompt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/adapters/prompt"
	"github.com/wyrdbound/grimoire/pkg/domain"
)

func TestStaticAnswersWithConfiguredResponse(t *testing.T) {
	p := prompt.NewStatic("a mysterious stranger")

	res, err := p.Execute(context.Background(), domain.PromptRequest{
		Prompt:    "Describe an NPC for the tavern scene.",
		Variables: map[string]any{"scene": "tavern"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a mysterious stranger", res.Response)
	assert.Equal(t, "static", res.Provider)
	assert.NotZero(t, res.TokensUsed)
	assert.Len(t, p.Calls(), 1)
}

func TestStaticMatchesBySubstring(t *testing.T) {
	p := &prompt.Static{
		Response:  "default",
		Responses: map[string]string{"backstory": "an orphan of the war"},
	}

	res, err := p.Execute(context.Background(), domain.PromptRequest{Prompt: "Write a backstory."})
	require.NoError(t, err)
	assert.Equal(t, "an orphan of the war", res.Response)
}

func TestStaticRejectsEmptyPrompt(t *testing.T) {
	p := prompt.NewStatic("anything")

	_, err := p.Execute(context.Background(), domain.PromptRequest{Prompt: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty prompt")
}
