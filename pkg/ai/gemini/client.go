package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/WeParadox/Caraoke/pkg/ai"
)

var _ ai.AiInterface = (*gemini)(nil)

type gemini struct {
	model *genai.GenerativeModel
}

func NewGemini(apiKey, modelName string) (*gemini, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &gemini{model: client.GenerativeModel(modelName)}, nil
}

func (g *gemini) Name() string {
	return "gemini"
}

func (g *gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Msg("could not get response from gemini")
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini")
	}
	return fmt.Sprint(resp.Candidates[0].Content.Parts[0]), nil
}
