package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MetaMessageRequest is the Meta Cloud API send payload.
type MetaMessageRequest struct {
	MessagingProduct string `json:"messaging_product" binding:"required"`
	To               string `json:"to" binding:"required"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// MetaMessageResponse mirrors the Cloud API acknowledgement shape.
type MetaMessageResponse struct {
	MessagingProduct string        `json:"messaging_product"`
	Contacts         []MetaContact `json:"contacts"`
	Messages         []MetaMessage `json:"messages"`
}

type MetaContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type MetaMessage struct {
	ID string `json:"id"`
}

// RestSendResponse is what the generic REST endpoint answers with.
type RestSendResponse struct {
	Status      string    `json:"status"`
	MessageID   string    `json:"message_id"`
	To          string    `json:"to"`
	ProviderID  string    `json:"provider_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	ProviderID   string    `json:"provider_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockProvider simulates a WhatsApp message provider. It answers both a
// generic REST surface and the Meta Cloud API surface so either gateway
// flavor can be pointed at it.
type MockProvider struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	apiKey       string
	accessToken  string
	providerID   string
	rng          *rand.Rand
}

// NewMockProvider creates a new mock provider instance
func NewMockProvider(deliveryRate float64, minDelay, maxDelay time.Duration, apiKey, accessToken string) *MockProvider {
	return &MockProvider{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		apiKey:       apiKey,
		accessToken:  accessToken,
		providerID:   "MOCK_PROVIDER_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockProvider) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

// Handler struct holds the mock provider and routes
type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// SendRest handles the generic REST surface. GET carries the message in
// query args, POST in a JSON body; the api_key must match when one is
// configured.
func (h *Handler) SendRest(c *gin.Context) {
	var to, text, apiKey string

	if c.Request.Method == http.MethodGet {
		to = c.Query("to")
		text = c.Query("text")
		apiKey = c.Query("api_key")
	} else {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"details": err.Error(),
			})
			return
		}
		to = stringField(body, "to", "phone", "number")
		text = stringField(body, "text", "message", "body")
		apiKey = stringField(body, "api_key", "apikey", "key")
	}

	if h.provider.apiKey != "" && apiKey != h.provider.apiKey {
		log.Warn().Str("to", to).Msg("REST send rejected: bad api key")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	if to == "" || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and text are required"})
		return
	}

	time.Sleep(h.provider.randomDelay())

	if !h.provider.shouldSucceed() {
		log.Warn().Str("to", to).Msg("REST send failed (simulated)")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider temporarily unable to deliver"})
		return
	}

	log.Info().Str("to", to).Int("length", len(text)).Msg("REST message accepted")
	c.JSON(http.StatusOK, RestSendResponse{
		Status:      "sent",
		MessageID:   uuid.New().String(),
		To:          to,
		ProviderID:  h.provider.providerID,
		ProcessedAt: time.Now(),
	})
}

// SendMeta handles the Meta Cloud API surface, including the Bearer
// token check and the wamid acknowledgement.
func (h *Handler) SendMeta(c *gin.Context) {
	if h.provider.accessToken != "" {
		auth := c.GetHeader("Authorization")
		if auth != "Bearer "+h.provider.accessToken {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"message": "Invalid OAuth access token.",
					"type":    "OAuthException",
					"code":    190,
				},
			})
			return
		}
	}

	var req MetaMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"message": "Invalid parameter: " + err.Error(),
				"type":    "GraphMethodException",
				"code":    100,
			},
		})
		return
	}
	if req.MessagingProduct != "whatsapp" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"message": "messaging_product must be whatsapp",
				"type":    "GraphMethodException",
				"code":    100,
			},
		})
		return
	}

	time.Sleep(h.provider.randomDelay())

	if !h.provider.shouldSucceed() {
		log.Warn().Str("to", req.To).Msg("Meta send failed (simulated)")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"message": "An unexpected error has occurred.",
				"type":    "OAuthException",
				"code":    2,
			},
		})
		return
	}

	phoneNumberID := c.Param("phone_number_id")
	log.Info().
		Str("phone_number_id", phoneNumberID).
		Str("to", req.To).
		Int("length", len(req.Text.Body)).
		Msg("Meta message accepted")

	c.JSON(http.StatusOK, MetaMessageResponse{
		MessagingProduct: "whatsapp",
		Contacts: []MetaContact{
			{Input: req.To, WaID: strings.TrimPrefix(req.To, "+")},
		},
		Messages: []MetaMessage{
			{ID: "wamid." + uuid.New().String()},
		},
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		ProviderID:   h.provider.providerID,
		Timestamp:    time.Now(),
		DeliveryRate: h.provider.deliveryRate,
	})
}

// UpdateConfig allows changing provider configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.provider.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.provider.deliveryRate,
	})
}

// stringField returns the first of the given keys holding a string.
func stringField(body map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := body[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// Generic REST surface
	router.GET("/send", handler.SendRest)
	router.POST("/send", handler.SendRest)

	// Meta Cloud API surface
	router.POST("/v18.0/:phone_number_id/messages", handler.SendMeta)

	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)
	apiKey := getEnv("API_KEY", "")
	accessToken := getEnv("ACCESS_TOKEN", "")

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Bool("api_key_required", apiKey != "").
		Bool("access_token_required", accessToken != "").
		Msg("Starting Mock WhatsApp Provider")

	// Create mock provider
	provider := NewMockProvider(deliveryRate, minDelay, maxDelay, apiKey, accessToken)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
