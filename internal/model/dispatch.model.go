package model

import "errors"

// DispatchRequest is the unit of work placed on the dispatch queue. The
// message is final: template rendering happens before enqueueing.
type DispatchRequest struct {
	JobID       string `json:"job_id"`
	GatewayID   int64  `json:"gateway_id"`
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number"`
	SourceModel string `json:"source_model,omitempty"`
	SourceID    int64  `json:"source_id,omitempty"`
	TemplateID  *int64 `json:"template_id,omitempty"`
}

func (r DispatchRequest) Validate() error {
	if r.GatewayID == 0 {
		return errors.New("gateway_id is required")
	}
	if r.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// RecordRef points at the host application document a message belongs to.
// Fields is a snapshot of that document for template rendering.
type RecordRef struct {
	Model  string                 `json:"model"`
	ID     int64                  `json:"id"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// SubmitRequest is the API-facing ask to send one message. Either Message
// or TemplateID must be given; GatewayID may be omitted when the template
// names a default gateway.
type SubmitRequest struct {
	GatewayID   int64      `json:"gateway_id,omitempty"`
	PhoneNumber string     `json:"phone_number"`
	Message     string     `json:"message,omitempty"`
	TemplateID  *int64     `json:"template_id,omitempty"`
	Record      *RecordRef `json:"record,omitempty"`
}

// SubmitReceipt acknowledges an accepted submit. Warnings carry non-fatal
// findings such as template/gateway compatibility mismatches.
type SubmitReceipt struct {
	JobID    string   `json:"job_id"`
	QueueID  string   `json:"queue_id"`
	Warnings []string `json:"warnings,omitempty"`
}

// PreviewRequest asks for a template rendered against a record snapshot
// without sending anything.
type PreviewRequest struct {
	TemplateID int64      `json:"template_id"`
	Record     *RecordRef `json:"record,omitempty"`
}
