// Package postgres implements the registration store on PostgreSQL using
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pns-society/membership-api/internal/registration"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// Store persists registration records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// schema bootstraps the registrations table. The enum columns carry the
// store-side rejection of unknown ownership-proof and payment-method tags;
// this layer passes arbitrary strings through and lets the type constraint
// decide.
const schema = `
DO $$ BEGIN
	CREATE TYPE ownership_proof_type AS ENUM
		('LD_TAX_RECEIPT', 'MUTATION_PAPER', 'SALE_DEED', 'OTHER');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
	CREATE TYPE payment_method AS ENUM
		('BKASH', 'BANK_TRANSFER', 'CASH');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

CREATE TABLE IF NOT EXISTS registrations (
	id                       UUID PRIMARY KEY,
	sector_number            TEXT NOT NULL DEFAULT '',
	road_number              TEXT NOT NULL DEFAULT '',
	plot_number              TEXT NOT NULL DEFAULT '',
	plot_size                TEXT NOT NULL DEFAULT '',
	ownership_proof_type     ownership_proof_type NOT NULL,
	ownership_proof_file     TEXT,
	owner_name_english       TEXT NOT NULL DEFAULT '',
	owner_name_bangla        TEXT NOT NULL DEFAULT '',
	contact_number           TEXT NOT NULL DEFAULT '',
	nid_number               TEXT NOT NULL DEFAULT '',
	present_address          TEXT NOT NULL DEFAULT '',
	permanent_address        TEXT NOT NULL DEFAULT '',
	email                    TEXT NOT NULL UNIQUE,
	owner_photo              TEXT,
	password_hash            TEXT NOT NULL,
	payment_method           payment_method NOT NULL,
	bkash_transaction_id     TEXT,
	bkash_account_number     TEXT,
	bank_account_number_from TEXT,
	payment_receipt          TEXT,
	membership_fee           NUMERIC(12, 2) NOT NULL,
	agree_data_use           BOOLEAN NOT NULL,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Init creates the enums and table if they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init registrations schema: %w", err)
	}
	return nil
}

const insertRegistration = `
INSERT INTO registrations (
	id,
	sector_number, road_number, plot_number, plot_size,
	ownership_proof_type, ownership_proof_file,
	owner_name_english, owner_name_bangla, contact_number, nid_number,
	present_address, permanent_address, email, owner_photo, password_hash,
	payment_method, bkash_transaction_id, bkash_account_number,
	bank_account_number_from, payment_receipt,
	membership_fee, agree_data_use, created_at
) VALUES (
	$1,
	$2, $3, $4, $5,
	$6, $7,
	$8, $9, $10, $11,
	$12, $13, $14, $15, $16,
	$17, $18, $19,
	$20, $21,
	$22, $23, $24
)
`

// CreateRegistration inserts the record. A unique-constraint violation is
// interpreted as an email collision (email is the only unique column) and
// surfaces as registration.ErrEmailExists.
func (s *Store) CreateRegistration(ctx context.Context, rec *registration.Registration) error {
	_, err := s.pool.Exec(ctx, insertRegistration,
		rec.ID,
		rec.SectorNumber, rec.RoadNumber, rec.PlotNumber, rec.PlotSize,
		rec.OwnershipProofType, rec.OwnershipProofFile,
		rec.OwnerNameEnglish, rec.OwnerNameBangla, rec.ContactNumber, rec.NIDNumber,
		rec.PresentAddress, rec.PermanentAddress, rec.Email, rec.OwnerPhoto, rec.PasswordHash,
		rec.PaymentMethod, rec.BkashTransactionID, rec.BkashAccountNumber,
		rec.BankAccountNumberFrom, rec.PaymentReceipt,
		rec.MembershipFee, rec.AgreeDataUse, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert registration: %w", registration.ErrEmailExists)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
