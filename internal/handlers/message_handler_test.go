package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/dispatcher"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/render"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/internal/services"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
	"github.com/valyala/fasthttp"
)

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubmitReceipt), args.Error(1)
}

func (m *MockMessageService) Preview(ctx context.Context, req model.PreviewRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestMessageHandler_SubmitMessage(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		bodyBytes, _ := json.Marshal(submitMessageRequest{
			GatewayID:   1,
			PhoneNumber: "+393331234567",
			Message:     "Ciao!",
		})

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(r model.SubmitRequest) bool {
			return r.GatewayID == 1 && r.PhoneNumber == "+393331234567" && r.Message == "Ciao!"
		})).Return(&model.SubmitReceipt{JobID: "j-1", QueueID: "1-0"}, nil)

		ctx := setupTestContext("POST", "/messages", bodyBytes)
		handler.SubmitMessage(ctx)

		assert.Equal(t, 202, ctx.Response.StatusCode())

		var receipt model.SubmitReceipt
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &receipt))
		assert.Equal(t, "j-1", receipt.JobID)
		assert.Equal(t, "1-0", receipt.QueueID)

		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		ctx := setupTestContext("POST", "/messages", []byte("invalid json"))
		handler.SubmitMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())

		var response map[string]string
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Contains(t, response["error"], "invalid JSON")
	})

	t.Run("record travels with the request", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		tplID := int64(3)
		bodyBytes, _ := json.Marshal(submitMessageRequest{
			TemplateID:  &tplID,
			PhoneNumber: "+393331234567",
			Record: &model.RecordRef{
				Model:  "crm.lead",
				ID:     9,
				Fields: map[string]interface{}{"name": "Mario"},
			},
		})

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(r model.SubmitRequest) bool {
			return r.TemplateID != nil && *r.TemplateID == 3 &&
				r.Record != nil && r.Record.Model == "crm.lead" && r.Record.ID == 9
		})).Return(&model.SubmitReceipt{JobID: "j-2", QueueID: "1-1"}, nil)

		ctx := setupTestContext("POST", "/messages", bodyBytes)
		handler.SubmitMessage(ctx)

		assert.Equal(t, 202, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("unknown gateway maps to 404", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		bodyBytes, _ := json.Marshal(submitMessageRequest{GatewayID: 99, PhoneNumber: "+39333", Message: "x"})
		svc.On("Submit", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

		ctx := setupTestContext("POST", "/messages", bodyBytes)
		handler.SubmitMessage(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		bodyBytes, _ := json.Marshal(submitMessageRequest{GatewayID: 1, Message: "x"})
		svc.On("Submit", mock.Anything, mock.Anything).Return(nil, services.ErrEmptyPhone)

		ctx := setupTestContext("POST", "/messages", bodyBytes)
		handler.SubmitMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())

		var response map[string]string
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, services.ErrEmptyPhone.Error(), response["error"])
	})
}

func TestMessageHandler_PreviewMessage(t *testing.T) {
	t.Run("renders", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		bodyBytes, _ := json.Marshal(previewMessageRequest{
			TemplateID: 5,
			Record:     &model.RecordRef{Model: "crm.lead", ID: 1},
		})

		svc.On("Preview", mock.Anything, mock.MatchedBy(func(r model.PreviewRequest) bool {
			return r.TemplateID == 5 && r.Record != nil
		})).Return("Hello Mario", nil)

		ctx := setupTestContext("POST", "/messages/preview", bodyBytes)
		handler.PreviewMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response previewResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, "Hello Mario", response.Rendered)
	})

	t.Run("model mismatch maps to 400", func(t *testing.T) {
		svc := new(MockMessageService)
		handler := NewMessageHandler(svc)

		bodyBytes, _ := json.Marshal(previewMessageRequest{TemplateID: 5})
		svc.On("Preview", mock.Anything, mock.Anything).Return("", render.ErrModelMismatch)

		ctx := setupTestContext("POST", "/messages/preview", bodyBytes)
		handler.PreviewMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestHelperFunctions(t *testing.T) {
	t.Run("readJSON", func(t *testing.T) {
		data := map[string]string{"key": "value"}
		bodyBytes, _ := json.Marshal(data)
		ctx := setupTestContext("POST", "/", bodyBytes)

		var result map[string]string
		err := readJSON(ctx, &result)
		require.NoError(t, err)
		assert.Equal(t, "value", result["key"])
	})

	t.Run("writeJSON", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		data := map[string]string{"message": "test"}

		writeJSON(ctx, 200, data)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Header.Peek("Content-Type")), "application/json")

		var result map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &result)
		require.NoError(t, err)
		assert.Equal(t, "test", result["message"])
	})

	t.Run("writeError", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		writeError(ctx, 404, "not found")

		assert.Equal(t, 404, ctx.Response.StatusCode())

		var result map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &result)
		require.NoError(t, err)
		assert.Equal(t, "not found", result["error"])
	})

	t.Run("writeServiceError status mapping", func(t *testing.T) {
		cases := []struct {
			name   string
			err    error
			status int
		}{
			{"not found", repository.ErrNotFound, 404},
			{"job not found", dispatcher.ErrJobNotFound, 404},
			{"invalid config", model.ErrInvalidConfig, 422},
			{"invalid placeholder", render.ErrInvalidPlaceholder, 422},
			{"already sent", services.ErrAlreadySent, 409},
			{"gateway unavailable", services.ErrGatewayUnavailable, 409},
			{"anything else", errors.New("boom"), 400},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ctx := setupTestContext("GET", "/", nil)
				writeServiceError(ctx, tc.err)
				assert.Equal(t, tc.status, ctx.Response.StatusCode())
			})
		}
	})

	t.Run("writeServiceError conflict carries a warning", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		writeServiceError(ctx, services.ErrAlreadySent)

		var result map[string]string
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &result))
		assert.Equal(t, services.ErrAlreadySent.Error(), result["warning"])
		assert.Empty(t, result["error"])
	})

	t.Run("pathID", func(t *testing.T) {
		ctx := setupTestContext("GET", "/gateways/5", nil)
		ctx.SetUserValue("id", "5")

		id, err := pathID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
	})

	t.Run("pathID invalid", func(t *testing.T) {
		ctx := setupTestContext("GET", "/gateways/abc", nil)
		ctx.SetUserValue("id", "abc")

		_, err := pathID(ctx)
		assert.Error(t, err)
	})

	t.Run("parseTime RFC3339", func(t *testing.T) {
		parsed, err := parseTime("2024-01-01T12:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, 2024, parsed.Year())
	})

	t.Run("parseTime date only", func(t *testing.T) {
		parsed, err := parseTime("2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, 2024, parsed.Year())
		assert.Equal(t, time.Month(1), parsed.Month())
		assert.Equal(t, 1, parsed.Day())
	})

	t.Run("parseTime invalid", func(t *testing.T) {
		_, err := parseTime("invalid")
		assert.Error(t, err)
	})

	t.Run("splitCSV", func(t *testing.T) {
		assert.Equal(t, []string{"success", "error"}, splitCSV(" success , error ,"))
	})
}
