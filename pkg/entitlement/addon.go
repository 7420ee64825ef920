package entitlement

import "strings"

// variantSeparator splits the base code from the country/region variant in
// the wire form of an add-on code, e.g. "payroll.in". A dot is used instead
// of a dash so that multi-word base codes ("hr-foundation") stay unambiguous.
const variantSeparator = "."

// Code identifies an add-on as an explicit (base, variant) composite key.
// The variant is a country/region qualifier and may be empty for the generic
// edition. Two codes with the same base belong to the same add-on family.
type Code struct {
	Base    string
	Variant string
}

// NewCode returns the generic (variant-less) code for a base add-on.
func NewCode(base string) Code {
	return Code{Base: base}
}

// NewVariant returns a country/region-specific code for a base add-on.
func NewVariant(base, variant string) Code {
	return Code{Base: base, Variant: variant}
}

// ParseCode parses the wire form of an add-on code. Everything before the
// first separator is the base; the remainder, if any, is the variant.
func ParseCode(s string) Code {
	base, variant, found := strings.Cut(s, variantSeparator)
	if !found {
		return Code{Base: s}
	}
	return Code{Base: base, Variant: variant}
}

// String returns the wire form: "base" or "base.variant".
func (c Code) String() string {
	if c.Variant == "" {
		return c.Base
	}
	return c.Base + variantSeparator + c.Variant
}

// IsZero reports whether the code is empty.
func (c Code) IsZero() bool {
	return c.Base == ""
}

// HasVariant reports whether the code is country/region-specific.
func (c Code) HasVariant() bool {
	return c.Variant != ""
}

// Generic returns the variant-less code of the same family.
func (c Code) Generic() Code {
	return Code{Base: c.Base}
}

// SameFamily reports whether two codes share a base, i.e. are country
// variants of the same logical add-on.
func (c Code) SameFamily(other Code) bool {
	return c.Base == other.Base
}

// MarshalText implements encoding.TextMarshaler so codes serialize as their
// wire form in JSON payloads and cache keys.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	*c = ParseCode(string(text))
	return nil
}
