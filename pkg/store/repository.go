package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intentwire/intents-bridge/pkg/events"
)

const repoLogPrefix = "store:repository"

// Repository provides database access for the donation journal and the
// intent binding snapshot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping verifies database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// =========================================================================
// DONATION OPERATIONS
// =========================================================================

// InsertDonation appends one donation event to the journal.
func (r *Repository) InsertDonation(ctx context.Context, event *events.DonationEvent) error {
	slog.Debug(fmt.Sprintf("%s - InsertDonation intent=%s id=%s", repoLogPrefix, event.Intent, event.ID))

	params, err := json.Marshal(event.Params)
	if err != nil {
		return fmt.Errorf("%s - failed to encode donation params: %w", repoLogPrefix, err)
	}

	donatedAt := time.Now().UTC()
	if event.Timestamp != "" {
		if ts, perr := time.Parse(time.RFC3339Nano, event.Timestamp); perr == nil {
			donatedAt = ts.UTC()
		}
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO donations (id, intent, params, source, donated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Intent, params, event.Source, donatedAt)
	if err != nil {
		return fmt.Errorf("%s - InsertDonation failed: %w", repoLogPrefix, err)
	}
	return nil
}

// RecentDonations returns the newest donations, most recent first.
func (r *Repository) RecentDonations(ctx context.Context, limit int) ([]Donation, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, intent, params, source, donated_at
		 FROM donations
		 ORDER BY donated_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - RecentDonations query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var donations []Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// TopDonatedIntents ranks intents donated since the cutoff: donation count
// descending, most recent donation as the tiebreak.
func (r *Repository) TopDonatedIntents(ctx context.Context, since time.Time, limit int) ([]Suggestion, error) {
	if limit < 1 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx,
		`SELECT intent, COUNT(*)::bigint AS donation_count, MAX(donated_at) AS last_donated_at
		 FROM donations
		 WHERE donated_at >= $1
		 GROUP BY intent
		 ORDER BY donation_count DESC, last_donated_at DESC
		 LIMIT $2`, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s - TopDonatedIntents query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Intent, &s.Count, &s.LastDonatedAt); err != nil {
			return nil, fmt.Errorf("%s - TopDonatedIntents scan failed: %w", repoLogPrefix, err)
		}
		s.LastDonatedAt = s.LastDonatedAt.UTC()
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// CountDonations returns the total number of journaled donations.
func (r *Repository) CountDonations(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM donations`).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s - CountDonations failed: %w", repoLogPrefix, err)
	}
	return total, nil
}

// =========================================================================
// BINDING SNAPSHOT OPERATIONS
// =========================================================================

// SaveBindingSnapshot replaces the stored binding snapshot with the given
// registry state. Rows for identifiers no longer registered are removed;
// surviving rows keep their created timestamp.
func (r *Repository) SaveBindingSnapshot(ctx context.Context, bindings []IntentBinding) error {
	slog.Debug(fmt.Sprintf("%s - SaveBindingSnapshot count=%d", repoLogPrefix, len(bindings)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - SaveBindingSnapshot begin failed: %w", repoLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	identifiers := make([]string, 0, len(bindings))
	for i, b := range bindings {
		descriptor, merr := json.Marshal(b.Descriptor)
		if merr != nil {
			return fmt.Errorf("%s - failed to encode descriptor for %s: %w", repoLogPrefix, b.Identifier, merr)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO intent_bindings (identifier, title, descriptor, discoverable, reason, position, created, modified)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			 ON CONFLICT (identifier) DO UPDATE SET
			   title = $2,
			   descriptor = $3,
			   discoverable = $4,
			   reason = $5,
			   position = $6,
			   modified = $7`,
			b.Identifier, b.Title, descriptor, b.Discoverable, b.Reason, i, now)
		if err != nil {
			return fmt.Errorf("%s - upsert binding %s failed: %w", repoLogPrefix, b.Identifier, err)
		}
		identifiers = append(identifiers, b.Identifier)
	}

	if len(identifiers) == 0 {
		_, err = tx.Exec(ctx, `DELETE FROM intent_bindings`)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM intent_bindings WHERE NOT (identifier = ANY($1))`, identifiers)
	}
	if err != nil {
		return fmt.Errorf("%s - prune stale bindings failed: %w", repoLogPrefix, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - SaveBindingSnapshot commit failed: %w", repoLogPrefix, err)
	}
	return nil
}

// ListBindings returns the stored binding snapshot in registration order.
func (r *Repository) ListBindings(ctx context.Context) ([]IntentBinding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT identifier, title, descriptor, discoverable, reason, position, created, modified
		 FROM intent_bindings
		 ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListBindings query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var bindings []IntentBinding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, *b)
	}
	return bindings, rows.Err()
}

// GetBinding returns one stored binding, or pgx.ErrNoRows.
func (r *Repository) GetBinding(ctx context.Context, identifier string) (*IntentBinding, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT identifier, title, descriptor, discoverable, reason, position, created, modified
		 FROM intent_bindings
		 WHERE identifier = $1
		 LIMIT 1`, identifier)
	return scanBinding(row)
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanDonation(rows pgx.Rows) (*Donation, error) {
	var d Donation
	var params []byte
	if err := rows.Scan(&d.ID, &d.Intent, &params, &d.Source, &d.DonatedAt); err != nil {
		return nil, fmt.Errorf("%s - donation scan failed: %w", repoLogPrefix, err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &d.Params); err != nil {
			return nil, fmt.Errorf("%s - donation params decode failed: %w", repoLogPrefix, err)
		}
	}
	d.DonatedAt = d.DonatedAt.UTC()
	return &d, nil
}

func scanBinding(row pgx.Row) (*IntentBinding, error) {
	var b IntentBinding
	var descriptor []byte
	if err := row.Scan(&b.Identifier, &b.Title, &descriptor, &b.Discoverable, &b.Reason, &b.Position, &b.Created, &b.Modified); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s - binding scan failed: %w", repoLogPrefix, err)
	}
	if len(descriptor) > 0 {
		if err := json.Unmarshal(descriptor, &b.Descriptor); err != nil {
			return nil, fmt.Errorf("%s - binding descriptor decode failed: %w", repoLogPrefix, err)
		}
	}
	b.Created = b.Created.UTC()
	b.Modified = b.Modified.UTC()
	return &b, nil
}
