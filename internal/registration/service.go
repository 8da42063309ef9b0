package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pns-society/membership-api/internal/ingest"
)

// File slots accepted by the registration form. The slot's logical name
// (second value) appears in stored file names and differs from the form
// field for the ownership proof, a quirk kept for compatibility with
// already-issued references.
var fileSlots = []struct {
	field   string
	logical string
}{
	{field: "ownershipProofFile", logical: "ownershipProof"},
	{field: "ownerPhoto", logical: "ownerPhoto"},
	{field: "paymentReceipt", logical: "paymentReceipt"},
}

// FileStore materializes an uploaded-file slot into durable storage,
// returning its public reference or nil when no file was attached.
type FileStore interface {
	Materialize(handles []*ingest.FileHandle, field string) (*string, error)
}

// Service orchestrates one registration: normalize and validate fields,
// hash the password, materialize uploads, create the record. Steps run
// strictly in sequence; every failure is terminal for the request and the
// caller must resubmit. Files materialized before a later failure are left
// in place — an accepted, non-fatal orphan.
type Service struct {
	store  Store
	files  FileStore
	hasher Hasher
}

// NewService wires the orchestrator's collaborators.
func NewService(store Store, files FileStore, hasher Hasher) *Service {
	return &Service{store: store, files: files, hasher: hasher}
}

// Register processes one parsed submission and returns the created
// record's ID.
//
// Error contract: *ValidationError for missing/invalid email or password,
// ErrEmailExists (wrapped) for a duplicate email, any other error is a
// server fault.
func (s *Service) Register(ctx context.Context, form *ingest.Form) (uuid.UUID, error) {
	fields := Normalize(form.Fields)

	email := fields.String("email")
	if email == "" {
		return uuid.Nil, &ValidationError{Field: "email", Message: "Email is required"}
	}

	// The raw password never passes through normalization or the record;
	// only its hash moves downstream.
	password := strings.TrimSpace(form.Value("password"))
	if err := validatePassword(password); err != nil {
		return uuid.Nil, err
	}
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	refs := make(map[string]*string, len(fileSlots))
	for _, slot := range fileSlots {
		ref, err := s.files.Materialize(form.Files[slot.field], slot.logical)
		if err != nil {
			return uuid.Nil, fmt.Errorf("materialize %s: %w", slot.field, err)
		}
		refs[slot.field] = ref
	}

	rec := &Registration{
		ID: uuid.New(),

		SectorNumber: fields.String("sectorNumber"),
		RoadNumber:   fields.String("roadNumber"),
		PlotNumber:   fields.String("plotNumber"),
		PlotSize:     fields.String("plotSize"),

		OwnershipProofType: fields.String("ownershipProofType"),
		OwnershipProofFile: refs["ownershipProofFile"],

		OwnerNameEnglish: fields.String("ownerNameEnglish"),
		OwnerNameBangla:  fields.String("ownerNameBangla"),
		ContactNumber:    fields.String("contactNumber"),
		NIDNumber:        fields.String("nidNumber"),
		PresentAddress:   fields.String("presentAddress"),
		PermanentAddress: fields.String("permanentAddress"),
		Email:            email,
		OwnerPhoto:       refs["ownerPhoto"],
		PasswordHash:     passwordHash,

		PaymentMethod:         fields.String("paymentMethod"),
		BkashTransactionID:    fields.OptString("bkashTransactionId"),
		BkashAccountNumber:    fields.OptString("bkashAccountNumber"),
		BankAccountNumberFrom: fields.OptString("bankAccountNumberFrom"),
		PaymentReceipt:        refs["paymentReceipt"],

		MembershipFee: fields.Number("membershipFee"),
		AgreeDataUse:  fields.Bool("agreeDataUse"),

		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateRegistration(ctx, rec); err != nil {
		return uuid.Nil, err
	}

	return rec.ID, nil
}
