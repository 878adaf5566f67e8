package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/registry"
	"github.com/intentwire/intents-bridge/pkg/store"
)

const logPrefix = "dispatcher:dispatch"

const (
	// donationTimeout bounds the asynchronous donation legs so a stuck
	// publisher or journal cannot pile up goroutines.
	donationTimeout = 5 * time.Second
	// defaultForwardTimeout is the per-invocation reply deadline for
	// handlers registered over the wire, unless the registering app asked
	// for its own.
	defaultForwardTimeout = 5 * time.Second
)

// Journal persists donations and ranks them for prediction surfaces.
// Satisfied by *store.Repository; nil when the bridge runs without a
// database.
type Journal interface {
	InsertDonation(ctx context.Context, event *events.DonationEvent) error
	TopDonatedIntents(ctx context.Context, since time.Time, limit int) ([]store.Suggestion, error)
	Ping(ctx context.Context) error
}

// MetricsRecorder receives dispatch outcome measurements. Satisfied by the
// monitoring bundle; a nil recorder disables measurement.
type MetricsRecorder interface {
	ObserveInvocation(identifier, code string, elapsed time.Duration)
	ObserveDonation(ok bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveInvocation(string, string, time.Duration) {}
func (nopMetrics) ObserveDonation(bool)                            {}

// Dispatcher routes COMMS requests to registered intent handlers and to the
// bridge's control methods.
type Dispatcher struct {
	registry       *registry.Registry
	conn           *comms.Conn
	donor          events.Donor
	journal        Journal
	metrics        MetricsRecorder
	forwardTimeout time.Duration
}

// NewDispatcherParams carries the collaborators for NewDispatcher. Only
// Registry is required: a nil Conn disables wire registration, a nil Donor
// disables donation publishing, a nil Journal disables the suggestion
// engine, and a nil Metrics disables measurement.
type NewDispatcherParams struct {
	Registry       *registry.Registry
	Conn           *comms.Conn
	Donor          events.Donor
	Journal        Journal
	Metrics        MetricsRecorder
	ForwardTimeout time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	donor := params.Donor
	if donor == nil {
		donor = &events.NoOpPublisher{}
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	forwardTimeout := params.ForwardTimeout
	if forwardTimeout <= 0 {
		forwardTimeout = defaultForwardTimeout
	}
	return &Dispatcher{
		registry:       params.Registry,
		conn:           params.Conn,
		donor:          donor,
		journal:        params.Journal,
		metrics:        metrics,
		forwardTimeout: forwardTimeout,
	}
}

type handlerOutcome struct {
	result *intent.Result
	err    error
}

// Invoke runs one intent invocation end to end: lookup, parameter
// normalization, handler execution, and donation. Every failure mode comes
// back as a failed result inside the response; Invoke never returns an error
// and never lets a handler fault escape.
func (d *Dispatcher) Invoke(ctx context.Context, req *InvocationRequest) *InvocationResponse {
	started := time.Now()
	slog.Debug(fmt.Sprintf("%s - intent=%s id=%s", logPrefix, req.Intent, req.ID))

	ctx, cancel := withCallerDeadline(ctx, req.Ctx)
	defer cancel()

	reg, ok := d.registry.Lookup(req.Intent)
	if !ok {
		msg := fmt.Sprintf("no intent registered with identifier %q", req.Intent)
		return d.respond(req, started, intent.Failure(msg), intent.CodeUnknownIntent)
	}

	params, perr := reg.Descriptor.NormalizeParams(req.Params)
	if perr != nil {
		return d.respond(req, started, intent.Failure(perr.Message), perr.Code)
	}

	done := make(chan handlerOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error(fmt.Sprintf("%s - handler panic intent=%s: %v", logPrefix, req.Intent, rec))
				done <- handlerOutcome{err: intent.NewError(intent.CodeHandlerFailure, fmt.Sprintf("handler panic: %v", rec))}
			}
		}()
		result, err := reg.Handler(ctx, params)
		done <- handlerOutcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		// The buffered channel lets the late handler completion land
		// without leaking the goroutine; its result is discarded and
		// abandoned invocations are never donated.
		return d.respond(req, started, intent.Failure("invocation canceled by caller"), intent.CodeInvocationCanceled)
	case out := <-done:
		result, code := normalizeOutcome(out)
		if result.Success {
			d.donate(req.Ctx, reg.Descriptor, params)
		}
		return d.respond(req, started, result, code)
	}
}

// normalizeOutcome turns whatever the handler produced into a well-formed
// result. Handler errors and panics become HANDLER_FAILURE results; a nil
// result with a nil error is a success with no value; a malformed result is
// repaired in favor of the failure invariant.
func normalizeOutcome(out handlerOutcome) (*intent.Result, string) {
	if out.err != nil {
		msg := out.err.Error()
		if be, ok := out.err.(*intent.Error); ok {
			msg = be.Message
		}
		return intent.Failure(msg), intent.CodeHandlerFailure
	}
	if out.result == nil {
		return intent.Successful(nil), ""
	}
	res := *out.result
	// An error message always means the invocation failed, and failures
	// carry no value.
	if res.Error != "" {
		res.Success = false
		res.Value = nil
	} else if !res.Success {
		res.Value = nil
		res.Error = "intent handler reported failure"
	}
	return &res, ""
}

// donate publishes a donation event for a successful invocation of a
// prediction-eligible intent. The legs run in their own goroutine and are
// panic isolated, so donation can never affect the returned result.
func (d *Dispatcher) donate(ic *InvocationContext, desc intent.Descriptor, params intent.Params) {
	if !desc.IsEligibleForPrediction {
		return
	}

	event := &events.DonationEvent{
		ID:        uuid.New().String(),
		Intent:    desc.Identifier,
		Params:    params.Wire(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ic != nil {
		event.Source = ic.Surface
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				d.metrics.ObserveDonation(false)
				slog.Error(fmt.Sprintf("%s - donation panic intent=%s: %v", logPrefix, desc.Identifier, rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), donationTimeout)
		defer cancel()

		ok := true
		if err := d.donor.Donate(ctx, event); err != nil {
			ok = false
			slog.Warn(fmt.Sprintf("%s - donation publish failed intent=%s: %v", logPrefix, desc.Identifier, err))
		}
		if d.journal != nil {
			if err := d.journal.InsertDonation(ctx, event); err != nil {
				ok = false
				slog.Warn(fmt.Sprintf("%s - donation journal insert failed intent=%s: %v", logPrefix, desc.Identifier, err))
			}
		}
		d.metrics.ObserveDonation(ok)
	}()
}

func (d *Dispatcher) respond(req *InvocationRequest, started time.Time, result *intent.Result, code string) *InvocationResponse {
	d.metrics.ObserveInvocation(req.Intent, outcomeLabel(result, code), time.Since(started))
	return &InvocationResponse{ID: req.ID, Code: code, Result: result.ToMap()}
}

// outcomeLabel names the invocation outcome for metrics: "ok" for success,
// the bridge error code when the bridge produced the failure, "failed" for
// failures the handler reported itself.
func outcomeLabel(result *intent.Result, code string) string {
	if code != "" {
		return code
	}
	if result.Success {
		return "ok"
	}
	return "failed"
}

// withCallerDeadline tightens ctx when the caller supplied an explicit
// timeout or absolute deadline. The channel layer owns the default
// per-request deadline; context.WithDeadline keeps whichever bound is
// earlier.
func withCallerDeadline(ctx context.Context, ic *InvocationContext) (context.Context, context.CancelFunc) {
	if ic == nil {
		return context.WithCancel(ctx)
	}
	var deadline time.Time
	if ic.TimeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(ic.TimeoutMs) * time.Millisecond)
	}
	if ic.DeadlineMs > 0 {
		abs := time.UnixMilli(ic.DeadlineMs)
		if deadline.IsZero() || abs.Before(deadline) {
			deadline = abs
		}
	}
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}
