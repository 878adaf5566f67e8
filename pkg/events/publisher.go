package events

import "context"

// Donor is the interface for publishing donation events.
type Donor interface {
	Donate(ctx context.Context, event *DonationEvent) error
}

// ShortcutSyncer is the interface for publishing shortcut change events.
type ShortcutSyncer interface {
	PublishShortcutsChanged(ctx context.Context, event *ShortcutsChangedEvent) error
}

// NoOpPublisher is a Donor and ShortcutSyncer that does nothing (for
// in-process usage without events).
type NoOpPublisher struct{}

// Donate is a no-op.
func (p *NoOpPublisher) Donate(_ context.Context, _ *DonationEvent) error {
	return nil
}

// PublishShortcutsChanged is a no-op.
func (p *NoOpPublisher) PublishShortcutsChanged(_ context.Context, _ *ShortcutsChangedEvent) error {
	return nil
}

// CallbackDonor is a Donor that calls a callback function (for testing).
type CallbackDonor struct {
	callback func(ctx context.Context, event *DonationEvent) error
}

// NewCallbackDonor creates a new CallbackDonor.
func NewCallbackDonor(cb func(ctx context.Context, event *DonationEvent) error) *CallbackDonor {
	return &CallbackDonor{callback: cb}
}

// Donate calls the callback.
func (d *CallbackDonor) Donate(ctx context.Context, event *DonationEvent) error {
	return d.callback(ctx, event)
}

// CallbackSyncer is a ShortcutSyncer that calls a callback function (for
// testing).
type CallbackSyncer struct {
	callback func(ctx context.Context, event *ShortcutsChangedEvent) error
}

// NewCallbackSyncer creates a new CallbackSyncer.
func NewCallbackSyncer(cb func(ctx context.Context, event *ShortcutsChangedEvent) error) *CallbackSyncer {
	return &CallbackSyncer{callback: cb}
}

// PublishShortcutsChanged calls the callback.
func (s *CallbackSyncer) PublishShortcutsChanged(ctx context.Context, event *ShortcutsChangedEvent) error {
	return s.callback(ctx, event)
}
