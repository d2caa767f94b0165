package model

import (
	"errors"
	"time"
)

// TemplateGatewayType restricts which gateway kinds a template may be sent
// through. "both" places no restriction.
type TemplateGatewayType string

const (
	TemplateGatewayExternalRest TemplateGatewayType = "external_rest"
	TemplateGatewayMetaCloudAPI TemplateGatewayType = "meta_cloud_api"
	TemplateGatewayBoth         TemplateGatewayType = "both"
)

// InteractiveType is carried for future rich-message support; plain text
// is the only rendering today.
type InteractiveType string

const (
	InteractiveTypeNone   InteractiveType = "none"
	InteractiveTypeButton InteractiveType = "button"
	InteractiveTypeList   InteractiveType = "list"
)

type Template struct {
	ID               int64               `json:"id"`
	Name             string              `json:"name"`
	ModelName        string              `json:"model_name"`
	GatewayType      TemplateGatewayType `json:"gateway_type"`
	DefaultGatewayID *int64              `json:"default_gateway_id,omitempty"`
	Body             string              `json:"body"`
	MediaURL         string              `json:"media_url,omitempty"`
	InteractiveType  InteractiveType     `json:"interactive_type"`
	Active           bool                `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Template) TableName() string { return "templates" }

func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if t.ModelName == "" {
		return errors.New("template model name is required")
	}
	if t.Body == "" {
		return errors.New("template body is required")
	}
	switch t.GatewayType {
	case TemplateGatewayExternalRest, TemplateGatewayMetaCloudAPI, TemplateGatewayBoth:
	default:
		return errors.New("template gateway type must be external_rest, meta_cloud_api or both")
	}
	switch t.InteractiveType {
	case InteractiveTypeNone, InteractiveTypeButton, InteractiveTypeList:
	default:
		return errors.New("interactive type must be none, button or list")
	}
	return nil
}

// TemplateFilter controls template listing.
type TemplateFilter struct {
	ModelName   *string
	GatewayType *TemplateGatewayType
	Active      *bool
	Limit       int
	Offset      int
}

// CompatibleWith reports whether the template may be dispatched through a
// gateway of the given type.
func (t *Template) CompatibleWith(gt GatewayType) bool {
	switch t.GatewayType {
	case TemplateGatewayBoth:
		return true
	case TemplateGatewayExternalRest:
		return gt == GatewayTypeExternalRest
	case TemplateGatewayMetaCloudAPI:
		return gt == GatewayTypeMetaCloudAPI
	default:
		return false
	}
}
