package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherToolFormatsSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Formosa", r.URL.Query().Get("q"))
		assert.Equal(t, "pt_br", r.URL.Query().Get("lang"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"main":{"temp":25.04},"weather":[{"description":"céu limpo"}]}`))
	}))
	defer server.Close()

	tool := NewWeatherTool("chave")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]string{"cidade": "Formosa"})
	require.NoError(t, err)
	assert.Equal(t, "A temperatura em Formosa é de 25.0°C, com céu limpo.", out)
}

func TestWeatherToolUnknownCityIsAnAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer server.Close()

	tool := NewWeatherTool("chave")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]string{"cidade": "Xyzlandia"})
	require.NoError(t, err)
	assert.Contains(t, out, "city not found")
}

func TestWeatherToolMissingKey(t *testing.T) {
	tool := NewWeatherTool("")
	_, err := tool.Execute(context.Background(), map[string]string{"cidade": "Formosa"})
	require.Error(t, err)
}

func TestGoogleSearchToolFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[
			{"title":"The Go Programming Language","link":"https://go.dev","snippet":"Build simple, secure, scalable systems."},
			{"title":"Go wiki","link":"https://go.dev/wiki","snippet":"Community wiki."}
		]}`))
	}))
	defer server.Close()

	tool := NewGoogleSearchTool("chave", "cx")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]string{"query": "golang"})
	require.NoError(t, err)
	assert.Contains(t, out, "Título: The Go Programming Language")
	assert.Contains(t, out, "Link: https://go.dev")
	assert.Contains(t, out, "Trecho: Community wiki.")
	assert.Equal(t, 2, strings.Count(out, "---"))
}

func TestGoogleSearchToolNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tool := NewGoogleSearchTool("chave", "cx")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]string{"query": "nada"})
	require.NoError(t, err)
	assert.Equal(t, "Nenhum resultado encontrado para a pesquisa.", out)
}

func TestBrowseURLToolExtractsVisibleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(`<html><head><style>body{color:red}</style></head><body>
			<nav>menu principal</nav>
			<h1>Notícia   do dia</h1>
			<script>alert("oi")</script>
			<p>Primeiro parágrafo.</p>
			<footer>rodapé</footer>
		</body></html>`))
	}))
	defer server.Close()

	tool := NewBrowseURLTool()

	out, err := tool.Execute(context.Background(), map[string]string{"url": server.URL})
	require.NoError(t, err)
	assert.Contains(t, out, "Notícia do dia")
	assert.Contains(t, out, "Primeiro parágrafo.")
	assert.NotContains(t, out, "menu principal")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "rodapé")
	assert.NotContains(t, out, "color:red")
}

func TestBrowseURLToolTruncatesLongPages(t *testing.T) {
	long := strings.Repeat("palavra ", 3000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer server.Close()

	tool := NewBrowseURLTool()

	out, err := tool.Execute(context.Background(), map[string]string{"url": server.URL})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.LessOrEqual(t, len(out), maxPageChars+len(truncationMarker))
}

func TestBrowseURLToolBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tool := NewBrowseURLTool()

	_, err := tool.Execute(context.Background(), map[string]string{"url": server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestIPInfoToolFormatsLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"ip":"203.0.113.9","city":"Formosa","region":"Goiás","country":"BR","org":"AS0 Example"}`))
	}))
	defer server.Close()

	tool := NewIPInfoTool("tok")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Cidade: Formosa")
	assert.Contains(t, out, "País: BR")
}

func TestIPInfoToolNoCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.9"}`))
	}))
	defer server.Close()

	tool := NewIPInfoTool("tok")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Não foi possível determinar a localização a partir do IP.", out)
}

func TestSentimentToolMapsStarLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`[[{"label":"1 star","score":0.81},{"label":"3 stars","score":0.12}]]`))
	}))
	defer server.Close()

	tool := NewSentimentTool("", server.URL)

	out, err := tool.Execute(context.Background(), map[string]string{"text": "que dia horrível"})
	require.NoError(t, err)
	assert.Contains(t, out, "FORTE RAIVA / TRISTEZA")
	assert.Contains(t, out, "81.00%")
}

func TestVideoSearchToolFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snippet", r.URL.Query().Get("part"))
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"abc123"},"snippet":{"title":"Aprenda Go","channelTitle":"Canal Dev"}}
		]}`))
	}))
	defer server.Close()

	tool := NewVideoSearchTool("chave")
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]string{"query": "golang"})
	require.NoError(t, err)
	assert.Contains(t, out, "Título: Aprenda Go")
	assert.Contains(t, out, "https://www.youtube.com/watch?v=abc123")
}
