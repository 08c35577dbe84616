package ai

import "context"

// AiInterface 文本生成后端的通用接口
type AiInterface interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}
