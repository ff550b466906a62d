package appointments

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
)

// Kind identifies the appointment variant. It never changes after creation.
type Kind string

const (
	KindInPerson Kind = "in_person"
	KindRemote   Kind = "remote"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Envelope holds the fields shared by every appointment variant.
type Envelope struct {
	ID        string     `json:"id"`
	Date      civil.Date `json:"date"`
	Time      string     `json:"time"`
	Status    Status     `json:"status"`
	FeeCents  int64      `json:"fee_cents"`
	CreatedAt time.Time  `json:"created_at"`
}

// Appointment is either an InPerson or a Remote record. The unexported
// methods keep the set of implementations closed to this package.
type Appointment interface {
	Kind() Kind
	Common() Envelope
	withEnvelope(Envelope) Appointment
	snapshot() Appointment
}

// InPerson is a visit at a physical location.
type InPerson struct {
	Envelope
	ProviderName     string `json:"provider_name"`
	ProviderCategory string `json:"provider_category"`
	Organization     string `json:"organization,omitempty"`
	Location         string `json:"location"`
	Reason           string `json:"reason,omitempty"`
}

func (a InPerson) Kind() Kind       { return KindInPerson }
func (a InPerson) Common() Envelope { return a.Envelope }

func (a InPerson) withEnvelope(env Envelope) Appointment {
	a.Envelope = env
	return a
}

func (a InPerson) snapshot() Appointment { return a }

func (a InPerson) MarshalJSON() ([]byte, error) {
	type alias InPerson
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindInPerson, alias(a)})
}

// MeetingResource is the provider meeting attached to a remote appointment.
// Until Provisioned is true the appointment is simply not joinable yet.
type MeetingResource struct {
	MeetingID   string `json:"meeting_id"`
	JoinURL     string `json:"join_url"`
	StartURL    string `json:"start_url"`
	Password    string `json:"password,omitempty"`
	Provisioned bool   `json:"provisioned"`
	Simulated   bool   `json:"simulated,omitempty"`
}

// Remote is a telemedicine appointment backed by a video meeting.
type Remote struct {
	Envelope
	SpecialistName    string           `json:"specialist_name"`
	Specialty         string           `json:"specialty"`
	AvatarURL         string           `json:"avatar_url,omitempty"`
	PatientName       string           `json:"patient_name,omitempty"`
	CanJoin           bool             `json:"can_join"`
	PrescriptionCount int              `json:"prescription_count"`
	Notes             string           `json:"notes,omitempty"`
	Meeting           *MeetingResource `json:"meeting,omitempty"`
}

func (a Remote) Kind() Kind       { return KindRemote }
func (a Remote) Common() Envelope { return a.Envelope }

// Provisioned reports whether a joinable meeting has been attached.
func (a Remote) Provisioned() bool {
	return a.Meeting != nil && a.Meeting.Provisioned
}

func (a Remote) withEnvelope(env Envelope) Appointment {
	a.Envelope = env
	return a
}

// snapshot deep-copies the meeting and derives CanJoin.
func (a Remote) snapshot() Appointment {
	return a.clone()
}

func (a Remote) clone() Remote {
	if a.Meeting != nil {
		m := *a.Meeting
		a.Meeting = &m
	}
	a.CanJoin = a.Provisioned() && (a.Status == StatusConfirmed || a.Status == StatusInProgress)
	return a
}

func (a Remote) MarshalJSON() ([]byte, error) {
	type alias Remote
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindRemote, alias(a)})
}

// InPersonDetails is the booking input for an in-person appointment.
type InPersonDetails struct {
	Date             civil.Date `json:"date"`
	Time             string     `json:"time"`
	Status           Status     `json:"status,omitempty"`
	FeeCents         int64      `json:"fee_cents"`
	ProviderName     string     `json:"provider_name"`
	ProviderCategory string     `json:"provider_category"`
	Organization     string     `json:"organization,omitempty"`
	Location         string     `json:"location"`
	Reason           string     `json:"reason,omitempty"`
}

// RemoteDetails is the booking input for a remote appointment. PatientName
// is the counterpart shown in the meeting topic.
type RemoteDetails struct {
	Date              civil.Date `json:"date"`
	Time              string     `json:"time"`
	Status            Status     `json:"status,omitempty"`
	FeeCents          int64      `json:"fee_cents"`
	SpecialistName    string     `json:"specialist_name"`
	Specialty         string     `json:"specialty"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	PatientName       string     `json:"patient_name"`
	PrescriptionCount int        `json:"prescription_count"`
	Notes             string     `json:"notes,omitempty"`
}
