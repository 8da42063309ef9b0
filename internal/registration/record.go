// Package registration implements the membership-registration workflow:
// normalizing submitted form fields, enforcing the password policy,
// materializing uploaded files, and creating the registration record.
package registration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ownership proof types recognized by the store's enum column. Values
// outside this set pass through this layer untouched and are rejected by
// the store's type constraint.
const (
	ProofLDTaxReceipt  = "LD_TAX_RECEIPT"
	ProofMutationPaper = "MUTATION_PAPER"
	ProofSaleDeed      = "SALE_DEED"
	ProofOther         = "OTHER"
)

// Payment methods recognized by the store's enum column.
const (
	PaymentBkash        = "BKASH"
	PaymentBankTransfer = "BANK_TRANSFER"
	PaymentCash         = "CASH"
)

// DefaultMembershipFee applies when the submitted fee is absent or not a
// number.
const DefaultMembershipFee = 1020

// Registration is the persisted membership record. It is created exactly
// once per successful submission and never mutated by this service.
type Registration struct {
	ID uuid.UUID

	// Plot info
	SectorNumber string
	RoadNumber   string
	PlotNumber   string
	PlotSize     string

	// Ownership proof
	OwnershipProofType string
	OwnershipProofFile *string

	// Owner info
	OwnerNameEnglish string
	OwnerNameBangla  string
	ContactNumber    string
	NIDNumber        string
	PresentAddress   string
	PermanentAddress string
	Email            string
	OwnerPhoto       *string
	PasswordHash     string

	// Payment
	PaymentMethod         string
	BkashTransactionID    *string
	BkashAccountNumber    *string
	BankAccountNumberFrom *string
	PaymentReceipt        *string

	MembershipFee float64
	AgreeDataUse  bool

	CreatedAt time.Time
}

// ErrEmailExists signals a uniqueness conflict on the email column. The
// store maps its native duplicate-key error to this sentinel.
var ErrEmailExists = errors.New("email already exists")

// Store is the persistence boundary. The only operation this service
// needs is a single atomic create with duplicate-key detection.
type Store interface {
	// CreateRegistration persists the record. Returns ErrEmailExists
	// (possibly wrapped) when the email duplicates an existing record.
	CreateRegistration(ctx context.Context, rec *Registration) error
}
