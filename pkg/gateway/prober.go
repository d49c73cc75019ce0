package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// wildcardPlaceholder substitutes trailing `*` segments before a probe is
// sent, so wildcard routes get a concrete URI to hit.
const wildcardPlaceholder = "probe"

// Prober sends verification traffic through the gateway's proxy port. It
// never touches the admin control plane.
type Prober struct {
	dataPlaneURL string
	httpClient   *http.Client
	log          *zap.SugaredLogger
}

func NewProber(dataPlaneURL string, timeout time.Duration) *Prober {
	return &Prober{
		dataPlaneURL: strings.TrimSuffix(dataPlaneURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		log:          zap.S().Named("prober"),
	}
}

// Probe issues a lightweight GET against the route's URI and returns the
// gateway's status code. A transport error means the route (or the gateway
// itself) is unreachable.
func (p *Prober) Probe(ctx context.Context, uri string) (int, error) {
	target := p.dataPlaneURL + substituteWildcard(uri)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	return res.StatusCode, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model,omitempty"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// ProbeChat issues a minimal real chat completion against an AI-provider
// route. The caller classifies the status code: an auth or quota rejection
// from the upstream still proves the proxy path is wired.
func (p *Prober) ProbeChat(ctx context.Context, uri, model string) (int, error) {
	payload, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return 0, err
	}

	target := p.dataPlaneURL + substituteWildcard(uri)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	p.log.Debugw("chat probe", "uri", uri, "status", res.StatusCode)
	return res.StatusCode, nil
}

func substituteWildcard(uri string) string {
	if strings.HasSuffix(uri, "*") {
		return strings.TrimSuffix(uri, "*") + wildcardPlaceholder
	}
	return uri
}
