package meetings

import (
	"context"
	"time"
)

// Meeting is a provisioned video meeting as reported by a Provider.
type Meeting struct {
	ID              string
	JoinURL         string
	StartURL        string
	Password        string
	Topic           string
	StartTime       time.Time
	DurationMinutes int
	// Simulated marks meetings synthesized locally instead of by the
	// real provider (simulated mode or degraded credentials).
	Simulated bool
}

// CreateMeetingRequest describes a scheduled meeting to create.
type CreateMeetingRequest struct {
	Topic           string
	StartTime       time.Time
	DurationMinutes int
	Agenda          string
}

// Provider creates, reads and deletes remote meetings. Implementations
// return *ProviderError for provider-side failures.
type Provider interface {
	CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (*Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// wire types for the Zoom-style REST API

type createMeetingPayload struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone,omitempty"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	AutoRecording    string `json:"auto_recording"`
	Audio            string `json:"audio"`
}

type meetingResponse struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	JoinURL   string `json:"join_url"`
	StartURL  string `json:"start_url"`
	Password  string `json:"password"`
}

// scheduledMeetingType is the provider's code for a one-off scheduled meeting.
const scheduledMeetingType = 2

func defaultSettings() meetingSettings {
	return meetingSettings{
		HostVideo:        true,
		ParticipantVideo: true,
		JoinBeforeHost:   true,
		AutoRecording:    "none",
		Audio:            "both",
	}
}
