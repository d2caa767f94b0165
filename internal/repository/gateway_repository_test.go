package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
)

func TestGatewayRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	t.Run("external rest gateway round-trips its config", func(t *testing.T) {
		gw := &model.Gateway{
			Name:   "Twilio-like",
			Type:   model.GatewayTypeExternalRest,
			Active: true,
			External: &model.ExternalRestConfig{
				URL:            "https://api.provider.test/send",
				Method:         model.HTTPMethodPost,
				RecipientParam: "to",
				MessageParam:   "body",
				APIKeyParam:    "key",
				APIKeyValue:    "secret",
				ParamsTemplate: `{"channel": "whatsapp"}`,
			},
		}

		created, err := repo.Create(ctx, gw)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Twilio-like", got.Name)
		assert.Equal(t, model.GatewayTypeExternalRest, got.Type)
		require.NotNil(t, got.External)
		assert.Nil(t, got.Meta)
		assert.Equal(t, "https://api.provider.test/send", got.External.URL)
		assert.Equal(t, "secret", got.External.APIKeyValue)
	})

	t.Run("meta gateway round-trips its config", func(t *testing.T) {
		gw := &model.Gateway{
			Name:   "Meta Prod",
			Type:   model.GatewayTypeMetaCloudAPI,
			Active: true,
			Meta: &model.MetaCloudConfig{
				PhoneNumberID: "1066554433",
				AccessToken:   "EAAG-token",
			},
		}

		created, err := repo.Create(ctx, gw)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Meta)
		assert.Nil(t, got.External)
		assert.Equal(t, "1066554433", got.Meta.PhoneNumberID)
	})

	t.Run("get missing gateway", func(t *testing.T) {
		_, err := repo.Get(ctx, 424242)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGatewayRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Gateway{
		Name:     "REST gw",
		Type:     model.GatewayTypeExternalRest,
		Active:   true,
		External: &model.ExternalRestConfig{URL: "https://old.test"},
	})
	require.NoError(t, err)

	t.Run("update fields", func(t *testing.T) {
		created.Name = "REST gw v2"
		created.Active = false
		created.External.URL = "https://new.test"

		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, "REST gw v2", updated.Name)
		assert.False(t, updated.Active)
		assert.Equal(t, "https://new.test", updated.External.URL)
	})

	t.Run("switching variant clears the old config column", func(t *testing.T) {
		created.Type = model.GatewayTypeMetaCloudAPI
		created.External = nil
		created.Meta = &model.MetaCloudConfig{PhoneNumberID: "99", AccessToken: "tok"}

		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, model.GatewayTypeMetaCloudAPI, updated.Type)
		assert.Nil(t, updated.External)
		require.NotNil(t, updated.Meta)
		assert.Equal(t, "99", updated.Meta.PhoneNumberID)
	})

	t.Run("update missing gateway", func(t *testing.T) {
		_, err := repo.Update(ctx, &model.Gateway{ID: 424242, Name: "ghost", Type: model.GatewayTypeExternalRest})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGatewayRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	seed := []*model.Gateway{
		{Name: "rest-on", Type: model.GatewayTypeExternalRest, Active: true, External: &model.ExternalRestConfig{URL: "https://a.test"}},
		{Name: "rest-off", Type: model.GatewayTypeExternalRest, Active: false, External: &model.ExternalRestConfig{URL: "https://b.test"}},
		{Name: "meta-on", Type: model.GatewayTypeMetaCloudAPI, Active: true, Meta: &model.MetaCloudConfig{PhoneNumberID: "1", AccessToken: "t"}},
	}
	for _, gw := range seed {
		_, err := repo.Create(ctx, gw)
		require.NoError(t, err)
	}

	t.Run("list all", func(t *testing.T) {
		gateways, total, err := repo.List(ctx, model.GatewayFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, gateways, 3)
	})

	t.Run("filter by type", func(t *testing.T) {
		gwType := model.GatewayTypeExternalRest
		gateways, total, err := repo.List(ctx, model.GatewayFilter{Type: &gwType, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, gateways, 2)
	})

	t.Run("filter by active", func(t *testing.T) {
		active := true
		gateways, total, err := repo.List(ctx, model.GatewayFilter{Active: &active, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, gw := range gateways {
			assert.True(t, gw.Active)
		}
	})
}
