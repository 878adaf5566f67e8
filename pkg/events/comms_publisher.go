package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/intentwire/intents-bridge/pkg/channel"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// DonationSubject overrides the global donation subject (e.g. from
	// DONATION_SUBJECT).
	DonationSubject string
	// ShortcutsSubject overrides the shortcut change subject (e.g. from
	// SHORTCUTS_SUBJECT).
	ShortcutsSubject string
}

// CommsPublisher publishes donation and shortcut change events to COMMS
// subjects.
type CommsPublisher struct {
	nc               *comms.Conn
	donationSubject  string
	shortcutsSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	donationSubject := channel.SubjectDonation
	shortcutsSubject := channel.SubjectShortcuts
	if opts != nil && opts.DonationSubject != "" {
		donationSubject = opts.DonationSubject
	}
	if opts != nil && opts.ShortcutsSubject != "" {
		shortcutsSubject = opts.ShortcutsSubject
	}
	return &CommsPublisher{nc: nc, donationSubject: donationSubject, shortcutsSubject: shortcutsSubject}
}

// Donate publishes a DonationEvent to both the granular per-intent subject
// and the global donation subject.
func (p *CommsPublisher) Donate(_ context.Context, event *DonationEvent) error {
	data, err := channel.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode donation: %w", commsPublisherLogPrefix, err)
	}

	// Publish to granular subject
	granularSubject := channel.BuildDonationSubject(event.Intent)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}

	// Publish to global subject
	if err := p.nc.Publish(p.donationSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.donationSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published donation for %s", commsPublisherLogPrefix, event.Intent))
	return nil
}

// PublishShortcutsChanged publishes a ShortcutsChangedEvent to the shortcut
// change subject.
func (p *CommsPublisher) PublishShortcutsChanged(_ context.Context, event *ShortcutsChangedEvent) error {
	data, err := channel.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode shortcut change: %w", commsPublisherLogPrefix, err)
	}

	if err := p.nc.Publish(p.shortcutsSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.shortcutsSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published shortcut change with %d bindings", commsPublisherLogPrefix, len(event.Bindings)))
	return nil
}
