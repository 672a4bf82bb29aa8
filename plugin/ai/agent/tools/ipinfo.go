package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const ipinfoBaseURL = "https://ipinfo.io/json"

// IPInfoTool resolves the caller's approximate location via IP geolocation.
type IPInfoTool struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewIPInfoTool creates the geolocation tool.
func NewIPInfoTool(token string) *IPInfoTool {
	return &IPInfoTool{
		token:   token,
		baseURL: ipinfoBaseURL,
		client:  newHTTPClient(),
	}
}

func (t *IPInfoTool) Name() string {
	return "ipinfo"
}

func (t *IPInfoTool) Description() string {
	return "Busca informações de IP, cidade, estado, país e provedor do usuário. Use quando precisar de contexto geográfico, como para o clima, sem que a cidade seja especificada."
}

func (t *IPInfoTool) Parameters() map[string]any {
	return objectSchema(map[string]any{}, nil)
}

func (t *IPInfoTool) Required() []string {
	return nil
}

func (t *IPInfoTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	if t.token == "" {
		return "", errors.New("token de geolocalização não configurado")
	}

	query := url.Values{}
	query.Set("token", t.token)

	var payload struct {
		IP      string `json:"ip"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Org     string `json:"org"`
	}
	if err := getJSON(ctx, t.client, t.baseURL+"?"+query.Encode(), &payload); err != nil {
		return "", errors.Wrap(err, "ip lookup failed")
	}

	if payload.City == "" {
		return "Não foi possível determinar a localização a partir do IP.", nil
	}
	return fmt.Sprintf("IP: %s\nCidade: %s\nEstado: %s\nPaís: %s\nProvedor: %s",
		orUnavailable(payload.IP),
		orUnavailable(payload.City),
		orUnavailable(payload.Region),
		orUnavailable(payload.Country),
		orUnavailable(payload.Org)), nil
}

func orUnavailable(s string) string {
	if s == "" {
		return "Não disponível"
	}
	return s
}
