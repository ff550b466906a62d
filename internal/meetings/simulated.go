package meetings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SimulatedMeetingPrefix marks meeting ids that never reached the provider.
const SimulatedMeetingPrefix = "sim-"

// IsSimulatedMeetingID reports whether id was issued by a SimulatedProvider.
func IsSimulatedMeetingID(id string) bool {
	return strings.HasPrefix(id, SimulatedMeetingPrefix)
}

// SimulatedProvider synthesizes structurally valid meetings without any
// network calls. It backs MEETING_PROVIDER=simulated and the degraded
// credential mode of Client.
type SimulatedProvider struct {
	baseURL string

	mu       sync.Mutex
	meetings map[string]Meeting
}

func NewSimulatedProvider(baseURL string) *SimulatedProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://simulated-meetings.invalid"
	}
	return &SimulatedProvider{
		baseURL:  baseURL,
		meetings: make(map[string]Meeting),
	}
}

func (p *SimulatedProvider) CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*Meeting, error) {
	_ = ctx
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	m := p.synthesize(SimulatedMeetingPrefix+raw[:12], raw[12:20])
	m.Topic = req.Topic
	m.StartTime = req.StartTime
	m.DurationMinutes = req.DurationMinutes

	p.mu.Lock()
	p.meetings[m.ID] = m
	p.mu.Unlock()
	return &m, nil
}

// GetMeeting returns the stored meeting, or a synthesized one for ids the
// provider has not seen (e.g. after a restart).
func (p *SimulatedProvider) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	_ = ctx
	p.mu.Lock()
	m, ok := p.meetings[meetingID]
	p.mu.Unlock()
	if !ok {
		m = p.synthesize(meetingID, "")
	}
	return &m, nil
}

func (p *SimulatedProvider) DeleteMeeting(ctx context.Context, meetingID string) error {
	_ = ctx
	p.mu.Lock()
	delete(p.meetings, meetingID)
	p.mu.Unlock()
	return nil
}

func (p *SimulatedProvider) synthesize(id, password string) Meeting {
	return Meeting{
		ID:        id,
		JoinURL:   fmt.Sprintf("%s/j/%s", p.baseURL, id),
		StartURL:  fmt.Sprintf("%s/s/%s?role=host", p.baseURL, id),
		Password:  password,
		Simulated: true,
	}
}
