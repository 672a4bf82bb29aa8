package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const videoBaseURL = "https://www.googleapis.com/youtube/v3/search"

const maxVideoResults = 5

// VideoSearchTool looks up video metadata through the YouTube Data API.
type VideoSearchTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewVideoSearchTool creates the video lookup tool.
func NewVideoSearchTool(apiKey string) *VideoSearchTool {
	return &VideoSearchTool{
		apiKey:  apiKey,
		baseURL: videoBaseURL,
		client:  newHTTPClient(),
	}
}

func (t *VideoSearchTool) Name() string {
	return "buscar_video"
}

func (t *VideoSearchTool) Description() string {
	return "Busca vídeos relacionados a um tema e retorna título, canal e link. Use quando o usuário pedir vídeos, tutoriais ou música."
}

func (t *VideoSearchTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"query": stringSchema("O tema a ser pesquisado."),
	}, []string{"query"})
}

func (t *VideoSearchTool) Required() []string {
	return []string{"query"}
}

func (t *VideoSearchTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("chave da API de vídeo não configurada")
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("maxResults", fmt.Sprintf("%d", maxVideoResults))
	query.Set("q", args["query"])
	query.Set("key", t.apiKey)

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, t.client, t.baseURL+"?"+query.Encode(), &payload); err != nil {
		return "", errors.Wrap(err, "video search failed")
	}

	if len(payload.Items) == 0 {
		return "Nenhum vídeo encontrado para a pesquisa.", nil
	}

	var results []string
	for _, item := range payload.Items {
		results = append(results, fmt.Sprintf("Título: %s\nCanal: %s\nLink: https://www.youtube.com/watch?v=%s\n---",
			item.Snippet.Title, item.Snippet.ChannelTitle, item.ID.VideoID))
	}
	return strings.Join(results, "\n"), nil
}
