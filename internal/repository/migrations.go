package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reservations (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	party_size INT NOT NULL DEFAULT 0,
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	CHECK (start_at < end_at)
);

CREATE TABLE IF NOT EXISTS reservations_archive (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	party_size INT NOT NULL DEFAULT 0,
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reservations_start_at ON reservations(start_at);
`

// seedSQL fills the dashboard with a workable default configuration on
// first boot. Existing keys are never overwritten.
const seedSQL = `
INSERT INTO settings (key, value) VALUES
	('totalSeats', '50'),
	('operatingDay', 'Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday'),
	('openingTime', '10:00'),
	('closingTime', '22:00'),
	('averageMealTime_min', '120'),
	('step_min', '30'),
	('maximumReservation_month', '2'),
	('explanationOfReservationPage', 'Reservation page'),
	('agreementsForReservation', 'Sample agreements for reservation. For example, the rule of cancel.'),
	('contactEmail', ''),
	('notificationRecipientEmails', '')
ON CONFLICT (key) DO NOTHING;
`

// Migrate creates the settings, active and archive tables when they do not
// exist yet and seeds the default dashboard values.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, seedSQL)
	return err
}
