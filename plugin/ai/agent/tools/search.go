package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const searchBaseURL = "https://www.googleapis.com/customsearch/v1"

// maxSearchResults limits how many hits are handed to the model.
const maxSearchResults = 5

// GoogleSearchTool queries the Google Custom Search JSON API.
type GoogleSearchTool struct {
	apiKey  string
	cxID    string
	baseURL string
	client  *http.Client
}

// NewGoogleSearchTool creates the search tool.
func NewGoogleSearchTool(apiKey, cxID string) *GoogleSearchTool {
	return &GoogleSearchTool{
		apiKey:  apiKey,
		cxID:    cxID,
		baseURL: searchBaseURL,
		client:  newHTTPClient(),
	}
}

func (t *GoogleSearchTool) Name() string {
	return "google_search"
}

func (t *GoogleSearchTool) Description() string {
	return "Executa uma pesquisa na web e retorna os resultados. Use para encontrar informações gerais ou links relevantes. Caso precise de um contexto maior, use em conjunto com browse_url."
}

func (t *GoogleSearchTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"query": stringSchema("A consulta de pesquisa."),
	}, []string{"query"})
}

func (t *GoogleSearchTool) Required() []string {
	return []string{"query"}
}

func (t *GoogleSearchTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	if t.apiKey == "" || t.cxID == "" {
		return "", errors.New("credenciais de pesquisa não configuradas")
	}

	query := url.Values{}
	query.Set("key", t.apiKey)
	query.Set("cx", t.cxID)
	query.Set("q", args["query"])

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, t.client, t.baseURL+"?"+query.Encode(), &payload); err != nil {
		return "", errors.Wrap(err, "search request failed")
	}

	if len(payload.Items) == 0 {
		return "Nenhum resultado encontrado para a pesquisa.", nil
	}

	var results []string
	for i, item := range payload.Items {
		if i >= maxSearchResults {
			break
		}
		results = append(results, fmt.Sprintf("Título: %s\nLink: %s\nTrecho: %s\n---", item.Title, item.Link, item.Snippet))
	}
	return strings.Join(results, "\n"), nil
}
