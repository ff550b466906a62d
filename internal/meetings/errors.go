package meetings

import (
	"errors"
	"fmt"
)

var (
	// ErrMeetingNotFound is returned when the provider has no such meeting.
	ErrMeetingNotFound = errors.New("meetings: meeting not found")

	// ErrUnauthorized is returned when the provider rejects the access token.
	ErrUnauthorized = errors.New("meetings: provider rejected credentials")

	// ErrUnavailable wraps transport failures talking to the provider.
	ErrUnavailable = errors.New("meetings: provider unavailable")
)

// ProviderError describes a failed provider operation.
type ProviderError struct {
	Op         string
	MeetingID  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := "meetings: " + e.Op
	if e.MeetingID != "" {
		msg += " " + e.MeetingID
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// mapHTTPError turns a non-2xx provider response into a ProviderError.
func mapHTTPError(op, meetingID string, statusCode int, body []byte) error {
	pe := &ProviderError{
		Op:         op,
		MeetingID:  meetingID,
		StatusCode: statusCode,
		Body:       truncate(string(body), 512),
	}
	switch {
	case statusCode == 404:
		pe.Err = ErrMeetingNotFound
	case statusCode == 401:
		pe.Err = ErrUnauthorized
	case statusCode >= 500:
		pe.Err = ErrUnavailable
	}
	return pe
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
