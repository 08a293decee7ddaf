package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength = 100
	maxSlugLength = 50
	slugPattern   = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

	// anyIBeaconID is the reserved ID of the wildcard identity.
	anyIBeaconID = "any-ibeacon"
)

var slugRegex = regexp.MustCompile(slugPattern)

// Identity is one logical device the bridge monitors.
//
// Identities are fixed at startup. UUID is stored in lowercase canonical form.
type Identity struct {
	// ID is a URL-safe slug ("tilt-black").
	ID string `json:"id"`

	// Name is the human-readable device name ("Tilt Black").
	Name string `json:"name"`

	// UUID is the iBeacon proximity UUID, lowercase 8-4-4-4-12.
	UUID string `json:"uuid"`

	// Decoder interprets major/minor for this device.
	Decoder Decoder `json:"-"`
}

// AnyIBeacon is the wildcard identity. A registry holding it accepts
// advertisements for every UUID but keeps no state for them.
var AnyIBeacon = Identity{ID: anyIBeaconID, Name: "Any iBeacon"}

// IsWildcard reports whether the identity is AnyIBeacon.
func (i Identity) IsWildcard() bool {
	return i.ID == anyIBeaconID && i.UUID == ""
}

// NewIdentity builds a validated identity. An empty id is generated from
// name and a nil decoder defaults to MajorDecoder.
func NewIdentity(id, name, uuidStr string, decoder Decoder) (Identity, error) {
	if id == "" {
		id = GenerateSlug(name)
	}
	if decoder == nil {
		decoder = MajorDecoder
	}

	canonical, err := CanonicalUUID(uuidStr)
	if err != nil {
		return Identity{}, err
	}

	ident := Identity{
		ID:      id,
		Name:    strings.TrimSpace(name),
		UUID:    canonical,
		Decoder: decoder,
	}
	if err := ValidateIdentity(ident); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// ValidateIdentity checks a concrete identity. The wildcard is always valid.
func ValidateIdentity(i Identity) error {
	if i.IsWildcard() {
		return nil
	}
	if err := ValidateName(i.Name); err != nil {
		return err
	}
	if err := ValidateSlug(i.ID); err != nil {
		return err
	}
	if i.ID == anyIBeaconID {
		return fmt.Errorf("%w: id %q is reserved", ErrInvalidIdentity, anyIBeaconID)
	}
	if _, err := CanonicalUUID(i.UUID); err != nil {
		return err
	}
	if i.Decoder == nil {
		return fmt.Errorf("%w: %s has no decoder", ErrInvalidIdentity, i.ID)
	}
	return nil
}

// CanonicalUUID parses s in any case, with or without hyphens, and returns
// the lowercase 8-4-4-4-12 form.
func CanonicalUUID(s string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUUID, s)
	}
	return u.String(), nil
}

// normalizeUUID is the lookup key for incoming UUIDs. Unparseable input is
// lowercased as-is so it can still be reported as not monitored.
func normalizeUUID(s string) string {
	if c, err := CanonicalUUID(s); err == nil {
		return c
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
