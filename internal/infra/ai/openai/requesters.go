package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
	"github.com/bryanwahyu/nog/internal/infra/ai/prompt"
)

// ImageRequester sends a label photo to a vision-capable model.
type ImageRequester struct {
	Client *Client
}

func (r *ImageRequester) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MimeType, base64.StdEncoding.EncodeToString(req.Image))
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemImage},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt.ImageUser(req.Allergens)},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		},
	}

	content, err := r.Client.complete(ctx, r.Client.cfg.ImageModel, r.Client.cfg.ImageMaxTokens, messages)
	if err != nil {
		return analysis.Result{}, err
	}
	res, _ := analysis.Normalize(content, analysis.KindImage)
	return res, nil
}

// TextRequester sends a typed ingredient list.
type TextRequester struct {
	Client *Client
}

func (r *TextRequester) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemText},
		{Role: openai.ChatMessageRoleUser, Content: prompt.TextUser(req.Content, req.Allergens)},
	}

	content, err := r.Client.complete(ctx, r.Client.cfg.TextModel, r.Client.cfg.TextMaxTokens, messages)
	if err != nil {
		return analysis.Result{}, err
	}
	res, _ := analysis.Normalize(content, analysis.KindText)
	return res, nil
}
