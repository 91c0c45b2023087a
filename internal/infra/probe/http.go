package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ledgerdesk/aegis/internal/core/fault"
)

// HTTPProber checks an HTTP endpoint with a GET request. Non-2xx
// responses surface as status errors so the classifier sees the real
// status code and any field errors in the body.
type HTTPProber struct {
	key    string
	url    string
	client *resty.Client
}

// NewHTTPProber creates an HTTP prober for url.
func NewHTTPProber(key, url string, timeout time.Duration) *HTTPProber {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "aegis-probe/1.0")

	return &HTTPProber{key: key, url: url, client: client}
}

func (p *HTTPProber) Key() string { return p.key }

func (p *HTTPProber) Check(ctx context.Context) (any, error) {
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", p.key, err)
	}

	if resp.IsError() {
		serr := &fault.StatusError{
			Code:   resp.StatusCode(),
			Status: resp.Status(),
		}
		var body struct {
			Errors map[string][]string `json:"errors"`
		}
		if jerr := json.Unmarshal(resp.Body(), &body); jerr == nil && len(body.Errors) > 0 {
			serr.Fields = body.Errors
		}
		return nil, serr
	}

	var payload any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		payload = string(resp.Body())
	}
	return payload, nil
}

func (p *HTTPProber) Close() error {
	p.client.GetClient().CloseIdleConnections()
	return nil
}
