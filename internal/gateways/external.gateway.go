package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

// restSender talks to an arbitrary REST provider described entirely by
// configuration: URL, method, headers, a params template with {phone},
// {message} and {api_key} tokens, plus optional single-field overrides.
type restSender struct {
	cfg    *model.ExternalRestConfig
	client *fasthttp.Client
}

func newRestSender(cfg *model.ExternalRestConfig, client *fasthttp.Client) *restSender {
	return &restSender{cfg: cfg, client: client}
}

func (s *restSender) Send(ctx context.Context, message, address string) (*SendResult, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.cfg.URL)
	for key, value := range s.buildHeaders() {
		req.Header.Set(key, value)
	}

	params := s.buildParams(message, address)

	if s.cfg.Method == model.HTTPMethodGet {
		req.Header.SetMethod(fasthttp.MethodGet)
		args := req.URI().QueryArgs()
		for key, value := range params {
			args.Set(key, queryValue(value))
		}
	} else {
		req.Header.SetMethod(fasthttp.MethodPost)
		body, err := json.Marshal(params)
		if err != nil {
			return nil, &SendError{cause: fmt.Errorf("encode request params: %w", err)}
		}
		req.SetBody(body)
	}

	return do(ctx, s.client, req, resp)
}

// buildHeaders starts from the JSON content type and lets configured
// headers override it.
func (s *restSender) buildHeaders() map[string]string {
	headers := map[string]string{fasthttp.HeaderContentType: "application/json"}
	if s.cfg.Headers == "" {
		return headers
	}

	var custom map[string]string
	if err := json.Unmarshal([]byte(s.cfg.Headers), &custom); err != nil {
		logger.Warn("ignoring malformed gateway headers", "error", err)
		return headers
	}
	for key, value := range custom {
		headers[key] = value
	}
	return headers
}

// buildParams decodes the params template, substitutes tokens through the
// whole tree, then applies the per-field overrides, which win over
// anything the template produced.
func (s *restSender) buildParams(message, address string) map[string]interface{} {
	params := map[string]interface{}{}

	if s.cfg.ParamsTemplate != "" {
		var tree map[string]interface{}
		if err := json.Unmarshal([]byte(s.cfg.ParamsTemplate), &tree); err != nil {
			logger.Warn("ignoring malformed gateway params template", "error", err)
		} else {
			params = s.substituteTokens(tree, message, address).(map[string]interface{})
		}
	}

	if s.cfg.RecipientParam != "" && address != "" {
		params[s.cfg.RecipientParam] = address
	}
	if s.cfg.MessageParam != "" && message != "" {
		params[s.cfg.MessageParam] = message
	}
	if s.cfg.APIKeyParam != "" && s.cfg.APIKeyValue != "" {
		params[s.cfg.APIKeyParam] = s.cfg.APIKeyValue
	}

	return params
}

// substituteTokens walks the decoded tree and replaces tokens inside
// string keys and values. Substituting after the decode keeps message
// bodies containing quotes or braces from corrupting the document, which
// a textual replace on the raw template would allow. The {api_key} token
// is only touched when a key value is configured, so an unconfigured
// template keeps it verbatim.
func (s *restSender) substituteTokens(value interface{}, message, address string) interface{} {
	replace := func(in string) string {
		out := strings.ReplaceAll(in, "{phone}", address)
		out = strings.ReplaceAll(out, "{message}", message)
		if s.cfg.APIKeyValue != "" {
			out = strings.ReplaceAll(out, "{api_key}", s.cfg.APIKeyValue)
		}
		return out
	}

	switch tree := value.(type) {
	case string:
		return replace(tree)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tree))
		for key, item := range tree {
			out[replace(key)] = s.substituteTokens(item, message, address)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(tree))
		for i, item := range tree {
			out[i] = s.substituteTokens(item, message, address)
		}
		return out
	default:
		return value
	}
}

// queryValue flattens a params value for the query string. Scalars print
// plainly, nested structures travel JSON-encoded.
func queryValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}
