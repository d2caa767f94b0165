package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateValidate(t *testing.T) {
	valid := Template{
		Name:            "Lead follow-up",
		ModelName:       "crm.lead",
		GatewayType:     TemplateGatewayBoth,
		Body:            "Hi ${object.name}",
		InteractiveType: InteractiveTypeNone,
	}

	t.Run("valid", func(t *testing.T) {
		tpl := valid
		assert.NoError(t, tpl.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		tpl := valid
		tpl.Name = ""
		assert.EqualError(t, tpl.Validate(), "template name is required")
	})

	t.Run("missing model name", func(t *testing.T) {
		tpl := valid
		tpl.ModelName = ""
		assert.EqualError(t, tpl.Validate(), "template model name is required")
	})

	t.Run("missing body", func(t *testing.T) {
		tpl := valid
		tpl.Body = ""
		assert.EqualError(t, tpl.Validate(), "template body is required")
	})

	t.Run("bad gateway type", func(t *testing.T) {
		tpl := valid
		tpl.GatewayType = "sms"
		assert.Error(t, tpl.Validate())
	})

	t.Run("bad interactive type", func(t *testing.T) {
		tpl := valid
		tpl.InteractiveType = "carousel"
		assert.Error(t, tpl.Validate())
	})
}

func TestTemplateCompatibleWith(t *testing.T) {
	tests := []struct {
		tplType TemplateGatewayType
		gwType  GatewayType
		want    bool
	}{
		{TemplateGatewayBoth, GatewayTypeExternalRest, true},
		{TemplateGatewayBoth, GatewayTypeMetaCloudAPI, true},
		{TemplateGatewayExternalRest, GatewayTypeExternalRest, true},
		{TemplateGatewayExternalRest, GatewayTypeMetaCloudAPI, false},
		{TemplateGatewayMetaCloudAPI, GatewayTypeMetaCloudAPI, true},
		{TemplateGatewayMetaCloudAPI, GatewayTypeExternalRest, false},
	}

	for _, tt := range tests {
		tpl := Template{GatewayType: tt.tplType}
		assert.Equal(t, tt.want, tpl.CompatibleWith(tt.gwType),
			"template %s against gateway %s", tt.tplType, tt.gwType)
	}
}

func TestDispatchRequestValidate(t *testing.T) {
	valid := DispatchRequest{
		JobID:       "job-1",
		GatewayID:   1,
		Message:     "hello",
		PhoneNumber: "+393331234567",
	}

	assert.NoError(t, valid.Validate())

	missingGateway := valid
	missingGateway.GatewayID = 0
	assert.EqualError(t, missingGateway.Validate(), "gateway_id is required")

	missingPhone := valid
	missingPhone.PhoneNumber = ""
	assert.EqualError(t, missingPhone.Validate(), "phone_number is required")

	missingMessage := valid
	missingMessage.Message = ""
	assert.EqualError(t, missingMessage.Validate(), "message is required")
}
