package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/valyala/fasthttp"
)

// metaSender posts text messages to the WhatsApp Business Cloud API.
type metaSender struct {
	cfg    *model.MetaCloudConfig
	client *fasthttp.Client
}

func newMetaSender(cfg *model.MetaCloudConfig, client *fasthttp.Client) *metaSender {
	return &metaSender{cfg: cfg, client: client}
}

type metaTextPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             metaText `json:"text"`
}

type metaText struct {
	Body string `json:"body"`
}

func (s *metaSender) Send(ctx context.Context, message, address string) (*SendResult, error) {
	payload := metaTextPayload{
		MessagingProduct: "whatsapp",
		// Meta wants bare digits without the leading plus.
		To:   strings.TrimPrefix(address, "+"),
		Type: "text",
		Text: metaText{Body: message},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SendError{cause: fmt.Errorf("encode message payload: %w", err)}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.cfg.Endpoint())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+s.cfg.AccessToken)
	req.SetBody(body)

	return do(ctx, s.client, req, resp)
}
