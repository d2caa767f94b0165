// Package dispatcher executes queued send requests: it normalizes the
// recipient, pushes the message through the configured gateway, records
// the attempt in the audit trail and notifies the source record's feed.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techlab/whatsapp-gateway/internal/chatter"
	gateway "github.com/techlab/whatsapp-gateway/internal/gateways"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/phone"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/techlab/whatsapp-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

type GatewayRepository interface {
	Get(ctx context.Context, id int64) (*model.Gateway, error)
}

type LogRepository interface {
	Create(ctx context.Context, entry *model.GatewayLog) (*model.GatewayLog, error)
}

// Dispatcher runs one dispatch attempt end to end. Every attempt writes
// exactly one audit row, success or failure, before the outcome is
// reported back to the queue layer.
type Dispatcher struct {
	gateways   GatewayRepository
	logs       LogRepository
	directory  chatter.Directory
	normalizer *phone.Normalizer
	client     *fasthttp.Client
}

func New(gateways GatewayRepository, logs LogRepository, directory chatter.Directory, normalizer *phone.Normalizer, client *fasthttp.Client) *Dispatcher {
	if directory == nil {
		directory = chatter.Noop{}
	}
	if normalizer == nil {
		normalizer = phone.NewNormalizer("")
	}
	if client == nil {
		client = &fasthttp.Client{
			MaxConnsPerHost:     1024,
			ReadTimeout:         gateway.SendTimeout,
			WriteTimeout:        gateway.SendTimeout,
			MaxIdleConnDuration: time.Minute,
		}
	}
	return &Dispatcher{
		gateways:   gateways,
		logs:       logs,
		directory:  directory,
		normalizer: normalizer,
		client:     client,
	}
}

// Dispatch performs the attempt described by req. The returned log entry
// is what was appended to the audit trail. A non-nil error reports the
// send failure after it has been logged, so the caller can drive its own
// retry bookkeeping.
func (d *Dispatcher) Dispatch(ctx context.Context, req *model.DispatchRequest) (*model.GatewayLog, error) {
	start := time.Now()

	// Resolve the gateway up front so even failed attempts carry its
	// type in the audit row. A miss here is surfaced after the phone
	// check, keeping the failure order stable.
	gw, gwErr := d.gateways.Get(ctx, req.GatewayID)
	var gwType model.GatewayType
	if gw != nil {
		gwType = gw.Type
	}

	address, err := d.normalizer.Normalize(req.PhoneNumber)
	if err != nil {
		return d.finish(ctx, req, gwType, req.PhoneNumber, nil, fmt.Errorf("normalize phone number %q: %w", req.PhoneNumber, err), start)
	}

	if gwErr != nil {
		return d.finish(ctx, req, gwType, address, nil, fmt.Errorf("resolve gateway %d: %w", req.GatewayID, gwErr), start)
	}

	sender, err := gateway.ForGateway(gw, d.client)
	if err != nil {
		return d.finish(ctx, req, gwType, address, nil, err, start)
	}

	sendCtx, cancel := context.WithTimeout(ctx, gateway.SendTimeout)
	defer cancel()

	result, err := sender.Send(sendCtx, req.Message, address)
	return d.finish(ctx, req, gwType, address, result, err, start)
}

// finish writes the single audit row for this attempt, records metrics
// and posts the outcome note. The send error, when present, wins over a
// log write error: the caller must see the send failure first.
func (d *Dispatcher) finish(ctx context.Context, req *model.DispatchRequest, gwType model.GatewayType, address string, result *gateway.SendResult, sendErr error, start time.Time) (*model.GatewayLog, error) {
	entry := &model.GatewayLog{
		GatewayID:   req.GatewayID,
		GatewayType: gwType,
		Message:     req.Message,
		PhoneNumber: address,
		SourceModel: req.SourceModel,
		SourceID:    req.SourceID,
		Timestamp:   time.Now().UTC(),
	}
	if sendErr != nil {
		entry.Status = model.LogStatusError
		entry.ResponseCode = errorStatusCode(sendErr)
		entry.ResponseBody = sendErr.Error()
	} else {
		entry.Status = model.LogStatusSuccess
		entry.ResponseCode = result.StatusCode
		entry.ResponseBody = result.Body
	}

	logged, logErr := d.logs.Create(ctx, entry)
	if logErr != nil {
		logger.Error("failed to append gateway log", "gateway_id", req.GatewayID, "job_id", req.JobID, "error", logErr)
	} else {
		entry = logged
	}

	prom.IncDispatchAttempt(string(gwType), string(entry.Status))
	prom.ObserveDispatchDuration(time.Since(start).Seconds(), string(gwType))

	d.notify(ctx, req, address, sendErr)

	if sendErr != nil {
		return entry, sendErr
	}
	if logErr != nil {
		return entry, fmt.Errorf("append gateway log: %w", logErr)
	}
	return entry, nil
}

// notify posts the outcome to the source record's feed. Best-effort: a
// failing host application never masks the send outcome.
func (d *Dispatcher) notify(ctx context.Context, req *model.DispatchRequest, address string, sendErr error) {
	if req.SourceModel == "" || req.SourceID == 0 {
		return
	}

	var body string
	warning := false
	if sendErr == nil {
		body = fmt.Sprintf("WhatsApp message sent to %s: %s", address, req.Message)
	} else {
		body = fmt.Sprintf("WhatsApp message failed to %s: %s\nError: %s", address, req.Message, sendErr)
		warning = true
	}

	if err := d.directory.PostNote(ctx, req.SourceModel, req.SourceID, body, warning); err != nil {
		logger.Warn("failed to post outcome note", "model", req.SourceModel, "id", req.SourceID, "error", err)
	}
}

// errorStatusCode maps a send failure to the code stored in the audit
// row: the provider's status when it answered, 500 otherwise.
func errorStatusCode(sendErr error) int {
	var se *gateway.SendError
	if errors.As(sendErr, &se) && se.StatusCode != 0 {
		return se.StatusCode
	}
	return fasthttp.StatusInternalServerError
}
