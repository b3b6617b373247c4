package events

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters reads the list query parameters. now anchors the "upcoming"
// filter.
func ParseFilters(values url.Values, now time.Time) (Filters, error) {
	filters := Filters{
		OrganizerUsername: strings.TrimSpace(values.Get("organizer")),
	}

	if raw := strings.TrimSpace(values.Get("upcoming")); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, FilterError{Field: "upcoming", Message: "must be true or false"}
		}
		if upcoming {
			start := now.UTC()
			filters.StartsAfter = &start
		}
	}
	return filters, nil
}
