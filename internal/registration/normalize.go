package registration

// normalize.go coerces raw multipart field values into typed, trimmed,
// defaulted scalars. Every accepted field is declared once in formSchema
// and the same rules apply uniformly; there is no per-field ad hoc
// casting. Normalization is pure and never fails — bad input falls back
// to the field's default.

import (
	"strconv"
	"strings"
)

// FieldType selects the coercion rule for a field.
type FieldType int

const (
	// TypeString trims the value. Absent means empty string, unless the
	// field is Optional.
	TypeString FieldType = iota

	// TypeBool is true iff the lowercased value is "true", "1" or "yes".
	TypeBool

	// TypeNumber parses a float. Absent, unparseable or zero values fall
	// back to the default.
	TypeNumber

	// TypeEnum passes the trimmed value through as an opaque tag,
	// defaulting when empty. Unknown tags are not rejected here; the
	// store's type constraint has the final say.
	TypeEnum
)

// FieldSpec declares one form field: its name, coercion rule and default.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Default  string
	Optional bool // absent stays absent (nullable column) instead of ""
	Lower    bool // lowercase after trimming
}

// formSchema declares every text field the registration form accepts.
// The password is deliberately absent: it never passes through
// normalization and is handled only by the credential hasher.
var formSchema = []FieldSpec{
	{Name: "email", Type: TypeString, Lower: true},
	{Name: "sectorNumber", Type: TypeString},
	{Name: "roadNumber", Type: TypeString},
	{Name: "plotNumber", Type: TypeString},
	{Name: "plotSize", Type: TypeString},
	{Name: "ownershipProofType", Type: TypeEnum, Default: ProofLDTaxReceipt},
	{Name: "ownerNameEnglish", Type: TypeString},
	{Name: "ownerNameBangla", Type: TypeString},
	{Name: "contactNumber", Type: TypeString},
	{Name: "nidNumber", Type: TypeString},
	{Name: "presentAddress", Type: TypeString},
	{Name: "permanentAddress", Type: TypeString},
	{Name: "paymentMethod", Type: TypeEnum, Default: PaymentBkash},
	{Name: "bkashTransactionId", Type: TypeString, Optional: true},
	{Name: "bkashAccountNumber", Type: TypeString, Optional: true},
	{Name: "bankAccountNumberFrom", Type: TypeString, Optional: true},
	{Name: "membershipFee", Type: TypeNumber, Default: "1020"},
	{Name: "agreeDataUse", Type: TypeBool},
}

// Normalized holds the schema-applied view of a submission's text fields.
type Normalized struct {
	strings map[string]string
	numbers map[string]float64
	bools   map[string]bool
	present map[string]bool
}

// String returns the normalized string value for name ("" when absent).
func (n *Normalized) String(name string) string { return n.strings[name] }

// OptString returns a pointer to the normalized value, or nil when the
// field was absent or blank. Used for nullable store columns.
func (n *Normalized) OptString(name string) *string {
	if !n.present[name] {
		return nil
	}
	v := n.strings[name]
	return &v
}

// Number returns the normalized numeric value for name.
func (n *Normalized) Number(name string) float64 { return n.numbers[name] }

// Bool returns the normalized boolean value for name.
func (n *Normalized) Bool(name string) bool { return n.bools[name] }

// Normalize applies the form schema to raw multipart field values. A field
// submitted multiple times resolves to its first value.
func Normalize(raw map[string][]string) *Normalized {
	n := &Normalized{
		strings: make(map[string]string, len(formSchema)),
		numbers: make(map[string]float64),
		bools:   make(map[string]bool),
		present: make(map[string]bool),
	}

	for _, spec := range formSchema {
		value, ok := firstValue(raw, spec.Name)
		value = strings.TrimSpace(value)

		switch spec.Type {
		case TypeString:
			if spec.Lower {
				value = strings.ToLower(value)
			}
			n.strings[spec.Name] = value
			if ok && value != "" {
				n.present[spec.Name] = true
			}

		case TypeEnum:
			if value == "" {
				value = spec.Default
			}
			n.strings[spec.Name] = value
			n.present[spec.Name] = true

		case TypeNumber:
			n.numbers[spec.Name] = parseNumber(value, spec.Default)

		case TypeBool:
			n.bools[spec.Name] = parseBool(value)
		}
	}

	return n
}

// firstValue returns the first submitted value for a field.
func firstValue(raw map[string][]string, name string) (string, bool) {
	vs, ok := raw[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// parseBool treats "true", "1" and "yes" (any case) as true; everything
// else, including absence, is false.
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseNumber parses v as a float, falling back to the default when the
// value is absent, unparseable, or zero. Zero falls back on purpose: the
// legacy form treated a zero fee as "not provided".
func parseNumber(v, def string) float64 {
	d, _ := strconv.ParseFloat(def, 64)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f == 0 {
		return d
	}
	return f
}
