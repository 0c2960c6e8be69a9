package core

import "context"

// GenerationRequest is one user action asking for a featured image
type GenerationRequest struct {
	PostId     string `json:"post_id"`
	Title      string `json:"title,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	CustomText string `json:"custom_text,omitempty"`
	Style      string `json:"style,omitempty"`
	Quality    int    `json:"quality,omitempty"`
}

type GenerationResult struct {
	AssetId string
	Url     string
	Prompt  string
}

type ImageService interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
