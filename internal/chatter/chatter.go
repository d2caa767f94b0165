// Package chatter posts dispatch outcomes back to the business application
// that owns the source records (leads, contacts) referenced by messages.
package chatter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const requestTimeout = 10 * time.Second

// Directory is the narrow view of the host application the dispatch path
// needs: resolving a record's display name and posting notes to its feed.
// Both calls are best-effort, a failing host must never block a send.
type Directory interface {
	ResolveDisplayName(ctx context.Context, recordModel string, recordID int64) (string, bool)
	PostNote(ctx context.Context, recordModel string, recordID int64, body string, warning bool) error
}

// Client talks to the host application's record callback API.
type Client struct {
	baseURL string
	token   string
	client  *fasthttp.Client
}

func NewClient(baseURL, token string, client *fasthttp.Client) *Client {
	if client == nil {
		client = &fasthttp.Client{
			ReadTimeout:  requestTimeout,
			WriteTimeout: requestTimeout,
		}
	}
	return &Client{baseURL: baseURL, token: token, client: client}
}

// ResolveDisplayName asks the host for the record's display name. Any
// failure reports a miss, never an error.
func (c *Client) ResolveDisplayName(ctx context.Context, recordModel string, recordID int64) (string, bool) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/records/%s/%d/name", c.baseURL, recordModel, recordID))
	req.Header.SetMethod(fasthttp.MethodGet)
	c.authorize(req)

	if err := c.do(ctx, req, resp); err != nil {
		return "", false
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", false
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || payload.Name == "" {
		return "", false
	}
	return payload.Name, true
}

// PostNote appends a note to the record's message feed. Warning notes are
// rendered differently by the host, the payload just flags them.
func (c *Client) PostNote(ctx context.Context, recordModel string, recordID int64, body string, warning bool) error {
	payload, err := json.Marshal(map[string]interface{}{
		"body":    body,
		"warning": warning,
	})
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/records/%s/%d/notes", c.baseURL, recordModel, recordID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	c.authorize(req)
	req.SetBody(payload)

	if err := c.do(ctx, req, resp); err != nil {
		return err
	}
	if statusCode := resp.StatusCode(); statusCode < 200 || statusCode > 299 {
		return fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}
	return nil
}

func (c *Client) authorize(req *fasthttp.Request) {
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(requestTimeout)
	}
	return c.client.DoDeadline(req, resp, deadline)
}

// Noop satisfies Directory when no host application is configured.
type Noop struct{}

func (Noop) ResolveDisplayName(context.Context, string, int64) (string, bool) { return "", false }

func (Noop) PostNote(context.Context, string, int64, string, bool) error { return nil }
