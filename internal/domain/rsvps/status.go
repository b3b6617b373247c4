package rsvps

import (
	"fmt"
	"strings"

	"github.com/Togather-Foundation/gatherings/internal/validation"
)

// Status is an attendee's answer to an invitation. The zero value is not a
// valid status.
type Status uint8

const (
	StatusGoing Status = iota + 1
	StatusMaybe
	StatusNotGoing
)

// DefaultStatus is applied when an RSVP is created without a status.
const DefaultStatus = StatusGoing

var statusNames = map[Status]string{
	StatusGoing:    "Going",
	StatusMaybe:    "Maybe",
	StatusNotGoing: "Not Going",
}

var statusByName = map[string]Status{
	"Going":     StatusGoing,
	"Maybe":     StatusMaybe,
	"Not Going": StatusNotGoing,
}

// ParseStatus maps the wire name of a status to its value. Names are matched
// exactly.
func ParseStatus(name string) (Status, error) {
	status, ok := statusByName[name]
	if !ok {
		return 0, validation.FieldError("status", fmt.Sprintf("%q is not a valid choice; use one of %s", name, strings.Join(StatusNames(), ", ")))
	}
	return status, nil
}

// StatusNames lists the accepted wire names in declaration order.
func StatusNames() []string {
	return []string{statusNames[StatusGoing], statusNames[StatusMaybe], statusNames[StatusNotGoing]}
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("rsvps: invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
