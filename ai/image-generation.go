package ai

import "aifi/storage"

// ImageGenerationRequest represents a request to the images API
type ImageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

// ImageGenerationResponse represents the response from the images API
type ImageGenerationResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// ImageData represents a single generated image
type ImageData struct {
	B64JSON       string `json:"b64_json"`
	RevisedPrompt string `json:"revised_prompt"`
}

// NewImageRequest creates a single-image request from the current settings
func NewImageRequest(prompt string, settings *storage.Settings) *ImageGenerationRequest {
	model := settings.AiModel
	if model == "" {
		model = storage.ModelImage1
	}
	size := settings.DefaultSize
	if size == "" {
		size = storage.SizeSquare
	}
	return &ImageGenerationRequest{
		Model:  model,
		Prompt: prompt,
		N:      1,
		Size:   size,
	}
}
