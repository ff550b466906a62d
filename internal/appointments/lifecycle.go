package appointments

// transitions lists the allowed status changes per kind. COMPLETED and
// CANCELLED have no entry and are therefore terminal.
var transitions = map[Kind]map[Status][]Status{
	KindRemote: {
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted},
	},
	KindInPerson: {
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
	},
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidFor reports whether an appointment of kind may hold status s.
func ValidFor(kind Kind, s Status) bool {
	if !s.Known() {
		return false
	}
	if s == StatusInProgress {
		return kind == KindRemote
	}
	return kind == KindRemote || kind == KindInPerson
}

// CanTransition reports whether kind may move from -> to.
func CanTransition(kind Kind, from, to Status) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from -> to is not allowed.
func ValidateTransition(kind Kind, from, to Status) error {
	if CanTransition(kind, from, to) {
		return nil
	}
	return &TransitionError{Kind: kind, From: from, To: to}
}
