package fixtures

import (
	"github.com/techlab/whatsapp-gateway/internal/model"
)

// TestInactiveGateway is a disabled gateway used to exercise the
// inactive-gateway rejection paths. Callers clear the ID before persisting.
var TestInactiveGateway = model.Gateway{
	ID:     3,
	Name:   "Disabled Provider",
	Type:   model.GatewayTypeExternalRest,
	Active: false,
	External: &model.ExternalRestConfig{
		URL: "https://disabled.test/send",
	},
}

func SubmitRequestDirect(gatewayID int64) model.SubmitRequest {
	return model.SubmitRequest{
		GatewayID:   gatewayID,
		PhoneNumber: "+39 333 1234567",
		Message:     "Direct test message",
	}
}

func SubmitRequestTemplated(templateID int64, recordModel string, recordID int64) model.SubmitRequest {
	tid := templateID
	return model.SubmitRequest{
		PhoneNumber: "+39 333 1234567",
		TemplateID:  &tid,
		Record: &model.RecordRef{
			Model: recordModel,
			ID:    recordID,
			Fields: map[string]interface{}{
				"name":  "Mario Rossi",
				"email": "mario@rossi.test",
			},
		},
	}
}

func SubmitRequestMissingPhone(gatewayID int64) model.SubmitRequest {
	return model.SubmitRequest{
		GatewayID: gatewayID,
		Message:   "Test message",
	}
}

func SubmitRequestEmptyMessage(gatewayID int64) model.SubmitRequest {
	return model.SubmitRequest{
		GatewayID:   gatewayID,
		PhoneNumber: "+39 333 1234567",
	}
}

func LogFilterByGateway(gatewayID int64) model.LogFilter {
	return model.LogFilter{
		GatewayID: &gatewayID,
		Limit:     50,
		Offset:    0,
		Desc:      false,
	}
}

func LogFilterByStatus(statuses ...model.LogStatus) model.LogFilter {
	return model.LogFilter{
		Statuses: statuses,
		Limit:    50,
		Offset:   0,
		Desc:     false,
	}
}

func LogFilterBySource(modelName string, id int64) model.LogFilter {
	return model.LogFilter{
		SourceModel: &modelName,
		SourceID:    &id,
		Limit:       50,
		Offset:      0,
		Desc:        false,
	}
}
