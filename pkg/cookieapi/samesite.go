package cookieapi

import "fmt"

// SameSiteStatus is the cookie's same-site state as reported by the host.
type SameSiteStatus string

const (
	NoRestriction SameSiteStatus = "no_restriction"
	Lax           SameSiteStatus = "lax"
	Strict        SameSiteStatus = "strict"
	Unspecified   SameSiteStatus = "unspecified"
)

// ParseSameSite returns the status for one of the four wire tags.
// Tags are case-sensitive.
func ParseSameSite(tag string) (SameSiteStatus, error) {
	s := SameSiteStatus(tag)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSameSite, tag)
	}
	return s, nil
}

// Valid reports whether s is one of the four known statuses.
func (s SameSiteStatus) Valid() bool {
	switch s {
	case NoRestriction, Lax, Strict, Unspecified:
		return true
	}
	return false
}

func (s SameSiteStatus) String() string {
	return string(s)
}

func (s SameSiteStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSameSite, string(s))
	}
	return []byte(s), nil
}

func (s *SameSiteStatus) UnmarshalText(b []byte) error {
	v, err := ParseSameSite(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
