package domain

// List of delivery lifecycle statuses. The main line advances from
// requested to ended; cancelled absorbs early stages; conflict is a
// detour entered from started/pendingReception and left by reassignment.
const (
	StatusRequested        DeliveryStatus = "requested"
	StatusAccepted         DeliveryStatus = "accepted"
	StatusPendingReception DeliveryStatus = "pendingReception"
	StatusToBeConfirmed    DeliveryStatus = "toBeConfirmed"
	StatusStarted          DeliveryStatus = "started"
	StatusEnded            DeliveryStatus = "ended"
	StatusCancelled        DeliveryStatus = "cancelled"
	StatusInConflict       DeliveryStatus = "conflict"
)

// List of actor roles.
const (
	RoleClient  Role = "client"
	RoleDriver  Role = "driver"
	RoleManager Role = "conflict-manager"
)

var allowedStatuses = [...]DeliveryStatus{
	StatusRequested, StatusAccepted, StatusPendingReception,
	StatusToBeConfirmed, StatusStarted, StatusEnded,
	StatusCancelled, StatusInConflict,
}

// mainLineRank orders the happy path. Transitions must never lower the
// rank; the conflict detour and cancellation are handled separately.
var mainLineRank = map[DeliveryStatus]int{
	StatusRequested:        0,
	StatusAccepted:         1,
	StatusPendingReception: 2,
	StatusToBeConfirmed:    3,
	StatusStarted:          4,
	StatusEnded:            5,
}

// Valid checks if the DeliveryStatus is valid.
func (s DeliveryStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave the status.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Active reports whether a delivery in this status has an assigned driver
// on the road: position updates and conflict reports only make sense here.
func (s DeliveryStatus) Active() bool {
	switch s {
	case StatusAccepted, StatusPendingReception, StatusToBeConfirmed, StatusStarted:
		return true
	default:
		return false
	}
}

// Reportable reports whether a mid-transit conflict may be reported.
func (s DeliveryStatus) Reportable() bool {
	return s == StatusStarted || s == StatusPendingReception
}

// Cancellable reports whether the owning client may still cancel.
func (s DeliveryStatus) Cancellable() bool {
	return s == StatusRequested || s == StatusAccepted
}

// CanTransition reports whether moving from s to next follows the main
// line forward, enters the conflict detour from a reportable stage, or
// cancels an early stage.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return s.Cancellable()
	}
	if next == StatusInConflict {
		return s.Reportable()
	}
	if s == StatusInConflict {
		// reassignment resumes the stage recorded on the conflict
		return next.Reportable()
	}
	from, ok := mainLineRank[s]
	if !ok {
		return false
	}
	to, ok := mainLineRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// Valid checks if the Role is valid.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleDriver || r == RoleManager
}
