package server

import (
	"aifi/ai"
	"aifi/core"
	"aifi/lib/sl"
	"aifi/storage"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// postID accepts both numeric and string ids
type postID string

func (p *postID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*p = postID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("post_id must be a string or a number")
	}
	*p = postID(s)
	return nil
}

type generateRequest struct {
	PostId     postID `json:"post_id"`
	Title      string `json:"title"`
	Prompt     string `json:"prompt"`
	CustomText string `json:"custom_text"`
	Style      string `json:"style"`
	Quality    int    `json:"quality"`
}

type generateResponse struct {
	Success      bool   `json:"success"`
	Url          string `json:"url,omitempty"`
	AttachmentId string `json:"attachment_id,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, generateResponse{
			Code:    string(ai.KindInvalidRequest),
			Message: err.Error(),
		})
		return
	}
	if strings.TrimSpace(string(req.PostId)) == "" {
		c.JSON(http.StatusBadRequest, generateResponse{
			Code:    string(ai.KindInvalidRequest),
			Message: "post_id is required",
		})
		return
	}

	// the provider call is not aborted when the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.images.Generate(ctx, core.GenerationRequest{
		PostId:     string(req.PostId),
		Title:      strings.TrimSpace(req.Title),
		Prompt:     strings.TrimSpace(req.Prompt),
		CustomText: strings.TrimSpace(req.CustomText),
		// unknown styles fall back to realistic in the prompt builder
		Style:      strings.TrimSpace(req.Style),
		Quality:    req.Quality,
	})
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.log.With(slog.String("post", string(req.PostId))).Error("generate", sl.Err(err))
		}
		c.JSON(status, generateResponse{Code: code, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Success:      true,
		Url:          res.Url,
		AttachmentId: res.AssetId,
		Prompt:       res.Prompt,
	})
}

func errorStatus(err error) (int, string) {
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError, "internal_error"
	}
	switch apiErr.Category() {
	case "request":
		return http.StatusBadRequest, string(apiErr.Kind)
	case "storage":
		return http.StatusInternalServerError, string(apiErr.Kind)
	}
	return http.StatusBadGateway, string(apiErr.Kind)
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		s.log.Error("reading settings", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if settings == nil {
		d := storage.DefaultSettings()
		settings = &d
	}
	c.JSON(http.StatusOK, settings.Masked())
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var input storage.SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	current, err := s.settings.GetSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if current == nil {
		d := storage.DefaultSettings()
		current = &d
	}

	updated := storage.SanitizeSettings(*current, input)
	if err = s.settings.SaveSettings(&updated); err != nil {
		s.log.Error("saving settings", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	s.log.With(
		slog.String("model", updated.AiModel),
		slog.String("format", updated.OutputFormat),
		slog.Int("quality", updated.ImageQuality),
		sl.Secret(updated.ApiKey),
	).Info("settings updated")
	c.JSON(http.StatusOK, updated.Masked())
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.posts.GetPost(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleSavePost(c *gin.Context) {
	var body struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	post := &storage.Post{Id: c.Param("id"), Title: strings.TrimSpace(body.Title)}
	if err := s.posts.SavePost(post); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	saved, err := s.posts.GetPost(post.Id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) handlePostAssets(c *gin.Context) {
	assets, err := s.media.PostAssets(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if assets == nil {
		assets = []storage.Asset{}
	}
	c.JSON(http.StatusOK, assets)
}

func (s *Server) handleMedia(c *gin.Context) {
	asset, path, err := s.media.Open(c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Content-Type", asset.MimeType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.File(path)
}
