package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const weatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// WeatherTool queries OpenWeatherMap for current conditions.
type WeatherTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherTool creates the weather tool.
func NewWeatherTool(apiKey string) *WeatherTool {
	return &WeatherTool{
		apiKey:  apiKey,
		baseURL: weatherBaseURL,
		client:  newHTTPClient(),
	}
}

func (t *WeatherTool) Name() string {
	return "obter_clima"
}

func (t *WeatherTool) Description() string {
	return "Busca informações de clima para uma cidade específica. Use quando o usuário perguntar sobre a previsão do tempo ou temperatura. Se não souber a cidade, use a ferramenta ipinfo para descobrir."
}

func (t *WeatherTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"cidade": stringSchema("O nome da cidade."),
	}, []string{"cidade"})
}

func (t *WeatherTool) Required() []string {
	return []string{"cidade"}
}

type weatherPayload struct {
	Message string `json:"message"`
	Main    struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("chave da API de clima não configurada")
	}
	cidade := args["cidade"]

	query := url.Values{}
	query.Set("q", cidade)
	query.Set("appid", t.apiKey)
	query.Set("lang", "pt_br")
	query.Set("units", "metric")

	var payload weatherPayload
	if err := getJSON(ctx, t.client, t.baseURL+"?"+query.Encode(), &payload); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			// The provider reports unknown cities and similar conditions with
			// a non-2xx status; that is an answer, not a transport failure.
			return fmt.Sprintf("Não foi possível obter o clima para a cidade informada: %s", statusMessage(statusErr)), nil
		}
		return "", errors.Wrap(err, "weather request failed")
	}

	description := "condições desconhecidas"
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}
	return fmt.Sprintf("A temperatura em %s é de %.1f°C, com %s.", cidade, payload.Main.Temp, description), nil
}
