package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
)

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	defaultGatewayID := int64(3)
	tpl := &model.Template{
		Name:             "Lead follow-up",
		ModelName:        "crm.lead",
		GatewayType:      model.TemplateGatewayBoth,
		DefaultGatewayID: &defaultGatewayID,
		Body:             "Hello ${object.name}, this is ${user.name}",
		InteractiveType:  model.InteractiveTypeNone,
		Active:           true,
	}

	created, err := repo.Create(ctx, tpl)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead follow-up", got.Name)
	assert.Equal(t, "crm.lead", got.ModelName)
	require.NotNil(t, got.DefaultGatewayID)
	assert.Equal(t, int64(3), *got.DefaultGatewayID)
	assert.Equal(t, "Hello ${object.name}, this is ${user.name}", got.Body)

	_, err = repo.Get(ctx, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Template{
		Name:            "Original",
		ModelName:       "res.partner",
		GatewayType:     model.TemplateGatewayBoth,
		Body:            "Hi",
		InteractiveType: model.InteractiveTypeNone,
		Active:          true,
	})
	require.NoError(t, err)

	created.Name = "Renamed"
	created.Active = false
	created.GatewayType = model.TemplateGatewayMetaCloudAPI

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, model.TemplateGatewayMetaCloudAPI, updated.GatewayType)

	_, err = repo.Update(ctx, &model.Template{ID: 424242, Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	seed := []*model.Template{
		{Name: "a", ModelName: "crm.lead", GatewayType: model.TemplateGatewayBoth, Body: "x", InteractiveType: model.InteractiveTypeNone, Active: true},
		{Name: "b", ModelName: "crm.lead", GatewayType: model.TemplateGatewayMetaCloudAPI, Body: "x", InteractiveType: model.InteractiveTypeNone, Active: false},
		{Name: "c", ModelName: "res.partner", GatewayType: model.TemplateGatewayBoth, Body: "x", InteractiveType: model.InteractiveTypeNone, Active: true},
	}
	for _, tpl := range seed {
		_, err := repo.Create(ctx, tpl)
		require.NoError(t, err)
	}

	t.Run("filter by model name", func(t *testing.T) {
		modelName := "crm.lead"
		templates, total, err := repo.List(ctx, model.TemplateFilter{ModelName: &modelName, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, templates, 2)
	})

	t.Run("filter by active", func(t *testing.T) {
		active := true
		templates, total, err := repo.List(ctx, model.TemplateFilter{Active: &active, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, tpl := range templates {
			assert.True(t, tpl.Active)
		}
	})

	t.Run("ordered by name", func(t *testing.T) {
		templates, _, err := repo.List(ctx, model.TemplateFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, templates, 3)
		assert.Equal(t, "a", templates[0].Name)
		assert.Equal(t, "c", templates[2].Name)
	})
}
