package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/valyala/fasthttp"
)

// SendTimeout bounds a single provider call, connection setup included.
const SendTimeout = 30 * time.Second

var ErrUnknownType = errors.New("unknown gateway type")

// SendResult carries the provider's raw answer so the caller can persist
// it verbatim. No provider-specific parsing happens at this layer.
type SendResult struct {
	StatusCode int
	Body       string
}

// SendError is returned when the provider rejects the message or cannot
// be reached at all. StatusCode is zero for transport failures.
type SendError struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *SendError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("gateway request failed: %v", e.cause)
	}
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

func (e *SendError) Unwrap() error { return e.cause }

// Sender delivers one message body to one normalized address.
type Sender interface {
	Send(ctx context.Context, message, address string) (*SendResult, error)
}

// ForGateway picks the Sender implementation matching the gateway's
// variant config. The gateway is expected to have passed Validate.
func ForGateway(gw *model.Gateway, client *fasthttp.Client) (Sender, error) {
	switch gw.Type {
	case model.GatewayTypeExternalRest:
		if gw.External == nil {
			return nil, fmt.Errorf("gateway %q: %w: missing external config", gw.Name, model.ErrInvalidConfig)
		}
		return newRestSender(gw.External, client), nil
	case model.GatewayTypeMetaCloudAPI:
		if gw.Meta == nil {
			return nil, fmt.Errorf("gateway %q: %w: missing meta config", gw.Name, model.ErrInvalidConfig)
		}
		return newMetaSender(gw.Meta, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, gw.Type)
	}
}

// do executes the prepared request against the context deadline and
// enforces the 2xx contract shared by both sender variants.
func do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response) (*SendResult, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(SendTimeout)
	}

	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return nil, &SendError{cause: err}
	}

	statusCode := resp.StatusCode()
	body := string(resp.Body())
	if statusCode < 200 || statusCode > 299 {
		return nil, &SendError{StatusCode: statusCode, Body: body}
	}

	return &SendResult{StatusCode: statusCode, Body: body}, nil
}
