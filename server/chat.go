package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nyxhq/nyx/plugin/ai/agent"
	"github.com/nyxhq/nyx/plugin/imageproc"
	"github.com/nyxhq/nyx/store"
)

type chatRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type messageResponse struct {
	UID            string `json:"uid"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	HasImage       bool   `json:"hasImage"`
	ImageMediaType string `json:"imageMediaType,omitempty"`
	CreatedTs      int64  `json:"createdTs"`
}

type clearResponse struct {
	Removed int64 `json:"removed"`
}

// chat accepts one user turn (text and/or base64 image) and returns the final
// model text once the exchange completes.
func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	var image *agent.ImageInput
	if req.Image != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "image is not valid base64")
		}
		normalized, err := imageproc.Normalize(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unsupported image format")
		}
		image = &agent.ImageInput{Data: normalized.Data, MediaType: normalized.MediaType}
	}

	reply, err := s.assistant.Send(c.Request().Context(), req.Text, image)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyMessage) {
			return echo.NewHTTPError(http.StatusBadRequest, "text or image required")
		}
		slog.Error("chat exchange failed", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to complete exchange")
	}
	return c.JSON(http.StatusOK, &chatResponse{Reply: reply})
}

// listMessages returns stored turns oldest first. An optional limit keeps only
// the most recent ones.
func (s *Server) listMessages(c echo.Context) error {
	find := &store.FindMessage{}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		find.Limit = &limit
	}

	msgs, err := s.Store.ListMessages(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list messages", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	response := make([]*messageResponse, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, &messageResponse{
			UID:            msg.UID,
			Role:           string(msg.Role),
			Content:        msg.Content,
			HasImage:       msg.HasImage(),
			ImageMediaType: msg.ImageMediaType,
			CreatedTs:      msg.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) clearMessages(c echo.Context) error {
	removed, err := s.assistant.ClearHistory(c.Request().Context())
	if err != nil {
		slog.Error("failed to clear history", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear history")
	}
	return c.JSON(http.StatusOK, &clearResponse{Removed: removed})
}
