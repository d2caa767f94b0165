package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GatewayType discriminates the provider configuration carried by a
// Gateway. Exactly one variant config must be set and must match the type.
type GatewayType string

const (
	GatewayTypeExternalRest GatewayType = "external_rest"
	GatewayTypeMetaCloudAPI GatewayType = "meta_cloud_api"
)

const (
	HTTPMethodGet  = "GET"
	HTTPMethodPost = "POST"
)

const metaGraphBaseURL = "https://graph.facebook.com/v18.0"

var ErrInvalidConfig = errors.New("invalid gateway configuration")

type Gateway struct {
	ID       int64               `json:"id"`
	Name     string              `json:"name"`
	Type     GatewayType         `json:"type"`
	Active   bool                `json:"active"`
	External *ExternalRestConfig `json:"external,omitempty"`
	Meta     *MetaCloudConfig    `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Gateway) TableName() string { return "gateways" }

// ExternalRestConfig drives a generic REST provider. ParamsTemplate is a
// JSON document whose strings may carry {phone}, {message} and {api_key}
// tokens; Headers is a JSON object merged over the default content type.
type ExternalRestConfig struct {
	URL            string `json:"url"`
	Method         string `json:"http_method"`
	RecipientParam string `json:"recipient_param"`
	MessageParam   string `json:"message_param"`
	APIKeyParam    string `json:"api_key_param"`
	APIKeyValue    string `json:"api_key_value"`
	Headers        string `json:"headers"`
	ParamsTemplate string `json:"params_template"`
}

// MetaCloudConfig drives the WhatsApp Business Cloud API. BaseURL is only
// meant for pointing tests and sandboxes somewhere other than Meta.
type MetaCloudConfig struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	SenderName    string `json:"sender_name,omitempty"`
	BaseURL       string `json:"base_url,omitempty"`
}

func (c *MetaCloudConfig) Endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = metaGraphBaseURL
	}
	return fmt.Sprintf("%s/%s/messages", base, c.PhoneNumberID)
}

// GatewayFilter controls gateway listing.
type GatewayFilter struct {
	Type   *GatewayType
	Active *bool
	Limit  int
	Offset int
}

// GatewayInfo pairs a gateway with usage stats for list and detail reads.
type GatewayInfo struct {
	*Gateway
	LogCount int64 `json:"log_count"`
}

func (g *Gateway) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	switch g.Type {
	case GatewayTypeExternalRest:
		if g.External == nil {
			return fmt.Errorf("%w: external_rest gateway needs an external config", ErrInvalidConfig)
		}
		if g.Meta != nil {
			return fmt.Errorf("%w: external_rest gateway cannot carry a meta config", ErrInvalidConfig)
		}
		return g.External.validate()
	case GatewayTypeMetaCloudAPI:
		if g.Meta == nil {
			return fmt.Errorf("%w: meta_cloud_api gateway needs a meta config", ErrInvalidConfig)
		}
		if g.External != nil {
			return fmt.Errorf("%w: meta_cloud_api gateway cannot carry an external config", ErrInvalidConfig)
		}
		return g.Meta.validate()
	default:
		return fmt.Errorf("%w: unknown gateway type %q", ErrInvalidConfig, g.Type)
	}
}

func (c *ExternalRestConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	switch c.Method {
	case "", HTTPMethodGet, HTTPMethodPost:
	default:
		return fmt.Errorf("%w: http method must be GET or POST, got %q", ErrInvalidConfig, c.Method)
	}
	if c.Headers != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(c.Headers), &headers); err != nil {
			return fmt.Errorf("%w: headers must be a JSON object of strings: %v", ErrInvalidConfig, err)
		}
	}
	if c.ParamsTemplate != "" {
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(c.ParamsTemplate), &params); err != nil {
			return fmt.Errorf("%w: params template must be a JSON object: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *MetaCloudConfig) validate() error {
	if c.PhoneNumberID == "" {
		return fmt.Errorf("%w: phone number id is required", ErrInvalidConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrInvalidConfig)
	}
	return nil
}
