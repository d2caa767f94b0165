package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"github.com/techlab/whatsapp-gateway/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Each sqlite connection gets its own in-memory database; a single
	// connection keeps consumer goroutines on the migrated one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&repository.GatewayEntity{},
		&repository.TemplateEntity{},
		&repository.GatewayLogEntity{},
	)
	require.NoError(t, err)

	return pg.NewFromGorm(db, db)
}

// SetupTestRedis starts a fresh miniredis and opens an adapter on it.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

// CreateTestGateway persists an active external_rest gateway posting to
// the given URL.
func CreateTestGateway(t *testing.T, db *pg.DB, name, url string) *model.Gateway {
	ctx := context.Background()
	gw, err := repository.NewGatewayRepository(db).Create(ctx, &model.Gateway{
		Name:   name,
		Type:   model.GatewayTypeExternalRest,
		Active: true,
		External: &model.ExternalRestConfig{
			URL:            url,
			Method:         model.HTTPMethodPost,
			RecipientParam: "to",
			MessageParam:   "text",
		},
	})
	require.NoError(t, err)
	return gw
}

// CreateTestMetaGateway persists an active meta_cloud_api gateway whose
// Graph calls are redirected to baseURL.
func CreateTestMetaGateway(t *testing.T, db *pg.DB, name, baseURL string) *model.Gateway {
	ctx := context.Background()
	gw, err := repository.NewGatewayRepository(db).Create(ctx, &model.Gateway{
		Name:   name,
		Type:   model.GatewayTypeMetaCloudAPI,
		Active: true,
		Meta: &model.MetaCloudConfig{
			PhoneNumberID: "103945812345678",
			AccessToken:   "test-access-token",
			BaseURL:       baseURL,
		},
	})
	require.NoError(t, err)
	return gw
}

func CreateTestTemplate(t *testing.T, db *pg.DB, modelName, body string) *model.Template {
	ctx := context.Background()
	tpl, err := repository.NewTemplateRepository(db).Create(ctx, &model.Template{
		Name:            modelName + " template",
		ModelName:       modelName,
		GatewayType:     model.TemplateGatewayBoth,
		Body:            body,
		InteractiveType: model.InteractiveTypeNone,
		Active:          true,
	})
	require.NoError(t, err)
	return tpl
}

func CreateTestLog(t *testing.T, db *pg.DB, gatewayID int64, status model.LogStatus) *model.GatewayLog {
	ctx := context.Background()
	code := 200
	if status == model.LogStatusError {
		code = 502
	}
	entry, err := repository.NewGatewayLogRepository(db).Create(ctx, &model.GatewayLog{
		GatewayID:    gatewayID,
		GatewayType:  model.GatewayTypeExternalRest,
		Message:      "test message",
		PhoneNumber:  "+39 333 1234567",
		Status:       status,
		ResponseCode: code,
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)
	return entry
}

// AssertEventually polls condition every 10ms until it holds or the
// timeout expires, then fails the test with msg.
func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
