package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/render"
	"github.com/techlab/whatsapp-gateway/internal/repository"
)

type MockTemplateStore struct {
	mock.Mock
}

func (m *MockTemplateStore) Create(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	args := m.Called(ctx, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateStore) Update(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	args := m.Called(ctx, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateStore) Get(ctx context.Context, id int64) (*model.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateStore) List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Template), args.Get(1).(int64), args.Error(2)
}

func validTemplate() *model.Template {
	return &model.Template{
		Name:            "Welcome",
		ModelName:       "res.partner",
		GatewayType:     model.TemplateGatewayBoth,
		Body:            "Welcome ${object.name}!",
		InteractiveType: model.InteractiveTypeNone,
		Active:          true,
	}
}

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a valid template", func(t *testing.T) {
		store := new(MockTemplateStore)
		tpl := validTemplate()
		saved := validTemplate()
		saved.ID = 1
		store.On("Create", ctx, tpl).Return(saved, nil)

		service := NewTemplateService(store, new(MockGatewayReader), testRenderer())

		got, err := service.Create(ctx, tpl)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
	})

	t.Run("rejects a malformed placeholder", func(t *testing.T) {
		store := new(MockTemplateStore)
		tpl := validTemplate()
		tpl.Body = "Hi ${objec.name}"

		service := NewTemplateService(store, new(MockGatewayReader), testRenderer())

		_, err := service.Create(ctx, tpl)
		assert.ErrorIs(t, err, render.ErrInvalidPlaceholder)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown default gateway", func(t *testing.T) {
		store := new(MockTemplateStore)
		gateways := new(MockGatewayReader)
		gateways.On("Get", ctx, int64(99)).Return(nil, repository.ErrNotFound)

		tpl := validTemplate()
		defaultGw := int64(99)
		tpl.DefaultGatewayID = &defaultGw

		service := NewTemplateService(store, gateways, testRenderer())

		_, err := service.Create(ctx, tpl)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a missing body", func(t *testing.T) {
		tpl := validTemplate()
		tpl.Body = ""

		service := NewTemplateService(new(MockTemplateStore), new(MockGatewayReader), testRenderer())

		_, err := service.Create(ctx, tpl)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "body is required")
	})
}

func TestTemplateService_Update_Validates(t *testing.T) {
	ctx := context.Background()
	store := new(MockTemplateStore)
	tpl := validTemplate()
	tpl.ID = 4
	tpl.Body = "Ciao ${bogus}"

	service := NewTemplateService(store, new(MockGatewayReader), testRenderer())

	_, err := service.Update(ctx, tpl)
	assert.ErrorIs(t, err, render.ErrInvalidPlaceholder)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTemplateService_Preview(t *testing.T) {
	ctx := context.Background()
	store := new(MockTemplateStore)
	tpl := validTemplate()
	tpl.ID = 2
	store.On("Get", ctx, int64(2)).Return(tpl, nil)

	service := NewTemplateService(store, new(MockGatewayReader), testRenderer())

	rendered, err := service.Preview(ctx, 2, &model.RecordRef{
		Model:  "res.partner",
		ID:     5,
		Fields: map[string]interface{}{"name": "Giulia"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Giulia!", rendered)
}

func TestTemplateService_Placeholders(t *testing.T) {
	service := NewTemplateService(new(MockTemplateStore), new(MockGatewayReader), testRenderer())

	placeholders := service.Placeholders()
	assert.Contains(t, placeholders, "${object.<field>}")
	assert.Contains(t, placeholders, "${user.name}")
	assert.Contains(t, placeholders, "${company.name}")
}
