// Package registration holds the locally persisted details of the user talking to the coach.
package registration

import (
	"fmt"
	"regexp"
	"strings"
)

// StorageKey is the opaque key under which the serialized record is persisted
const StorageKey = "userDetails"

var mobilePattern = regexp.MustCompile(`^09[0-9]{9}$`)

// Record is a user's registration details. A Record is never modified after it is accepted; re-registering replaces it
// wholesale
type Record struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Mobile    string `json:"mobile"`
}

// ValidationError reports a registration field that was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Reason)
}

// Normalize returns a copy of the record with surrounding whitespace removed from every field
func (r Record) Normalize() Record {
	return Record{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Mobile:    strings.TrimSpace(r.Mobile),
	}
}

// Validate checks that the record has non-empty names and a well-formed mobile number. Emptiness is judged after
// trimming, but the mobile number must match exactly as given, with no surrounding whitespace. The returned error, if
// any, is a *ValidationError naming the first offending field
func Validate(r Record) error {
	trimmed := r.Normalize()
	switch {
	case trimmed.FirstName == "":
		return &ValidationError{Field: "firstName", Reason: "must not be empty"}
	case trimmed.LastName == "":
		return &ValidationError{Field: "lastName", Reason: "must not be empty"}
	case trimmed.Mobile == "":
		return &ValidationError{Field: "mobile", Reason: "must not be empty"}
	case !mobilePattern.MatchString(r.Mobile):
		return &ValidationError{Field: "mobile", Reason: "must be 09 followed by 9 digits, e.g. 09123456789"}
	}
	return nil
}

// complete reports whether every required field of a loaded record is present
func (r Record) complete() bool {
	return r.FirstName != "" && r.LastName != "" && r.Mobile != ""
}
