package appointments

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/telecare-appointments/internal/meetings"
	"github.com/wolfman30/telecare-appointments/internal/observability/metrics"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

var appointmentsTracer = otel.Tracer("telecare.internal.appointments")

const defaultMeetingDuration = 30

// Store is the in-memory source of truth for appointments. Remote
// appointments get their meeting provisioned in the background; callers
// observe the result through later reads.
type Store struct {
	provider        meetings.Provider
	logger          *logging.Logger
	metrics         *metrics.ProvisioningMetrics
	now             func() time.Time
	loc             *time.Location
	meetingDuration int

	mu       sync.RWMutex
	records  map[string]Appointment
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now for timestamps and "today".
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone used for "today" and meeting start times.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMeetingDuration sets the length of provisioned meetings in minutes.
func WithMeetingDuration(minutes int) StoreOption {
	return func(s *Store) {
		if minutes > 0 {
			s.meetingDuration = minutes
		}
	}
}

// WithMetrics records provisioning and cleanup outcomes.
func WithMetrics(m *metrics.ProvisioningMetrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore constructs a store that provisions meetings through provider.
func NewStore(provider meetings.Provider, logger *logging.Logger, opts ...StoreOption) *Store {
	if provider == nil {
		panic("appointments: meeting provider required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		provider:        provider,
		logger:          logger,
		now:             time.Now,
		loc:             time.UTC,
		meetingDuration: defaultMeetingDuration,
		records:         make(map[string]Appointment),
		inflight:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInPerson records an in-person appointment. It has no side effects.
func (s *Store) AddInPerson(ctx context.Context, d InPersonDetails) (InPerson, error) {
	_ = ctx
	env, err := s.envelope(KindInPerson, d.Date, d.Time, d.Status, d.FeeCents)
	if err != nil {
		return InPerson{}, err
	}
	rec := InPerson{
		Envelope:         env,
		ProviderName:     d.ProviderName,
		ProviderCategory: d.ProviderCategory,
		Organization:     d.Organization,
		Location:         d.Location,
		Reason:           d.Reason,
	}

	s.mu.Lock()
	rec.ID = s.uniqueIDLocked()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.logger.Info("appointment created", "appointment_id", rec.ID, "kind", KindInPerson, "status", rec.Status)
	return rec, nil
}

// AddRemote records a remote appointment and starts provisioning its
// meeting without waiting for it. The returned record is never provisioned.
func (s *Store) AddRemote(ctx context.Context, d RemoteDetails) (Remote, error) {
	env, err := s.envelope(KindRemote, d.Date, d.Time, d.Status, d.FeeCents)
	if err != nil {
		return Remote{}, err
	}
	rec := Remote{
		Envelope:          env,
		SpecialistName:    d.SpecialistName,
		Specialty:         d.Specialty,
		AvatarURL:         d.AvatarURL,
		PatientName:       d.PatientName,
		PrescriptionCount: d.PrescriptionCount,
		Notes:             d.Notes,
	}

	s.mu.Lock()
	rec.ID = s.uniqueIDLocked()
	s.records[rec.ID] = rec
	s.inflight[rec.ID] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("appointment created", "appointment_id", rec.ID, "kind", KindRemote, "status", rec.Status)

	// Provisioning outlives the booking request; only values (trace) carry over.
	go s.provision(context.WithoutCancel(ctx), rec.ID, s.meetingRequest(rec))

	return rec.clone(), nil
}

// provision creates the meeting and merges it into the record stored under
// id at completion time, so status updates made meanwhile survive.
func (s *Store) provision(ctx context.Context, id string, req meetings.CreateMeetingRequest) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}()

	ctx, span := appointmentsTracer.Start(ctx, "appointments.provision_meeting")
	defer span.End()
	span.SetAttributes(attribute.String("telecare.appointment_id", id))

	meeting, err := s.provider.CreateMeeting(ctx, req)
	if err == nil && (meeting == nil || meeting.ID == "" || meeting.JoinURL == "") {
		err = fmt.Errorf("appointments: provider returned an incomplete meeting")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		s.metrics.ObserveProvision(metrics.OutcomeFailure)
		s.logger.Error("meeting provisioning failed", "appointment_id", id, "error", err)
		return
	}

	s.mu.Lock()
	current, ok := s.records[id].(Remote)
	if ok {
		current.Meeting = &MeetingResource{
			MeetingID:   meeting.ID,
			JoinURL:     meeting.JoinURL,
			StartURL:    meeting.StartURL,
			Password:    meeting.Password,
			Provisioned: true,
			Simulated:   meeting.Simulated,
		}
		s.records[id] = current
	}
	s.mu.Unlock()

	if !ok {
		// deleted while the meeting was being created
		s.metrics.ObserveProvision(metrics.OutcomeOrphaned)
		s.logger.Warn("appointment deleted during provisioning, removing meeting", "appointment_id", id, "meeting_id", meeting.ID)
		if err := s.provider.DeleteMeeting(ctx, meeting.ID); err != nil {
			s.logger.Warn("orphaned meeting cleanup failed", "appointment_id", id, "meeting_id", meeting.ID, "error", err)
		}
		return
	}

	outcome := metrics.OutcomeSuccess
	if meeting.Simulated {
		outcome = metrics.OutcomeSimulated
	}
	s.metrics.ObserveProvision(outcome)
	span.SetAttributes(attribute.Bool("telecare.meeting_simulated", meeting.Simulated))
	s.logger.Info("meeting provisioned", "appointment_id", id, "meeting_id", meeting.ID, "simulated", meeting.Simulated)
}

// UpdateStatus applies a lifecycle transition. Only the status changes.
func (s *Store) UpdateStatus(ctx context.Context, id string, to Status) (Appointment, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("appointments: update status %s: %w", id, ErrNotFound)
	}
	env := rec.Common()
	from := env.Status
	if !CanTransition(rec.Kind(), from, to) {
		return nil, &TransitionError{ID: id, Kind: rec.Kind(), From: from, To: to}
	}
	env.Status = to
	rec = rec.withEnvelope(env)
	s.records[id] = rec

	s.logger.Info("appointment status updated", "appointment_id", id, "from", from, "to", to)
	return rec.snapshot(), nil
}

// Reschedule moves a non-terminal appointment to a new date and time.
// An already provisioned meeting keeps its original start time.
func (s *Store) Reschedule(ctx context.Context, id string, date civil.Date, display string) (Appointment, error) {
	_ = ctx
	if !date.IsValid() {
		return nil, fmt.Errorf("appointments: reschedule %s: invalid date: %w", id, ErrInvalidAppointment)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("appointments: reschedule %s: %w", id, ErrNotFound)
	}
	env := rec.Common()
	if env.Status.Terminal() {
		return nil, &TransitionError{ID: id, Kind: rec.Kind(), From: env.Status, To: env.Status}
	}
	env.Date = date
	env.Time = strings.TrimSpace(display)
	rec = rec.withEnvelope(env)
	s.records[id] = rec

	s.logger.Info("appointment rescheduled", "appointment_id", id, "date", date.String(), "time", env.Time)
	return rec.snapshot(), nil
}

// Delete removes an appointment. For a provisioned remote appointment the
// meeting is deleted first; a cleanup failure is logged and never blocks
// the local removal.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("appointments: delete %s: %w", id, ErrNotFound)
	}

	if remote, isRemote := rec.(Remote); isRemote {
		s.cleanupMeeting(ctx, remote)
	}

	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()

	s.logger.Info("appointment deleted", "appointment_id", id, "kind", rec.Kind())
	return nil
}

func (s *Store) cleanupMeeting(ctx context.Context, rec Remote) {
	if !rec.Provisioned() || rec.Meeting.MeetingID == "" {
		s.metrics.ObserveCleanup(metrics.OutcomeSkipped)
		return
	}

	ctx, span := appointmentsTracer.Start(ctx, "appointments.cleanup_meeting")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.appointment_id", rec.ID),
		attribute.String("telecare.meeting_id", rec.Meeting.MeetingID),
	)

	if err := s.provider.DeleteMeeting(ctx, rec.Meeting.MeetingID); err != nil {
		span.RecordError(err)
		s.metrics.ObserveCleanup(metrics.OutcomeFailure)
		s.logger.Warn("meeting cleanup failed", "appointment_id", rec.ID, "meeting_id", rec.Meeting.MeetingID, "error", err)
		return
	}
	s.metrics.ObserveCleanup(metrics.OutcomeSuccess)
}

// Get returns a copy of the appointment stored under id.
func (s *Store) Get(id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("appointments: get %s: %w", id, ErrNotFound)
	}
	return rec.snapshot(), nil
}

// All returns every appointment in creation order.
func (s *Store) All() []Appointment {
	return s.filter(func(Appointment) bool { return true })
}

// ByKind returns the appointments of one variant in creation order.
func (s *Store) ByKind(kind Kind) []Appointment {
	return s.filter(func(a Appointment) bool { return a.Kind() == kind })
}

// Upcoming returns the upcoming view for the store's current day.
func (s *Store) Upcoming() []Appointment {
	return Upcoming(s.All(), s.Today())
}

// Past returns the past view for the store's current day.
func (s *Store) Past() []Appointment {
	return Past(s.All(), s.Today())
}

// Today is the current calendar date in the store's timezone.
func (s *Store) Today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// Provisioning reports whether a meeting is still being created for id.
func (s *Store) Provisioning(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inflight[id]
	return ok
}

// Wait blocks until every in-flight provisioning task has settled.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) filter(keep func(Appointment) bool) []Appointment {
	s.mu.RLock()
	out := make([]Appointment, 0, len(s.records))
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, rec.snapshot())
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(x, y Appointment) int {
		if c := x.Common().CreatedAt.Compare(y.Common().CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.Common().ID, y.Common().ID)
	})
	return out
}

func (s *Store) envelope(kind Kind, date civil.Date, display string, status Status, feeCents int64) (Envelope, error) {
	if !date.IsValid() {
		return Envelope{}, fmt.Errorf("appointments: %s: invalid date: %w", kind, ErrInvalidAppointment)
	}
	if feeCents < 0 {
		return Envelope{}, fmt.Errorf("appointments: %s: negative fee: %w", kind, ErrInvalidAppointment)
	}
	if status == "" {
		status = StatusPending
	}
	if !ValidFor(kind, status) {
		return Envelope{}, fmt.Errorf("appointments: %s with status %q: %w", kind, status, ErrInvalidStatus)
	}
	return Envelope{
		Date:      date,
		Time:      strings.TrimSpace(display),
		Status:    status,
		FeeCents:  feeCents,
		CreatedAt: s.now().UTC(),
	}, nil
}

// uniqueIDLocked returns an id not used by any stored record. Callers hold mu.
func (s *Store) uniqueIDLocked() string {
	for {
		id := uuid.NewString()
		if _, taken := s.records[id]; !taken {
			return id
		}
	}
}

func (s *Store) meetingRequest(rec Remote) meetings.CreateMeetingRequest {
	start, ok := startInstant(rec.Date, rec.Time, s.loc)
	if !ok {
		s.logger.Warn("unrecognized appointment time, scheduling meeting at midnight", "appointment_id", rec.ID, "time", rec.Time)
	}

	topic := "Consultation with " + rec.SpecialistName
	if rec.PatientName != "" {
		topic = fmt.Sprintf("Consultation: %s with %s", rec.SpecialistName, rec.PatientName)
	}
	agenda := fmt.Sprintf("Telemedicine appointment %s", rec.ID)
	if rec.Specialty != "" {
		agenda = fmt.Sprintf("Telemedicine %s appointment %s", rec.Specialty, rec.ID)
	}

	return meetings.CreateMeetingRequest{
		Topic:           topic,
		StartTime:       start,
		DurationMinutes: s.meetingDuration,
		Agenda:          agenda,
	}
}
