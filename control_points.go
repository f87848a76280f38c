package server

import "sort"

// validControlPoint reports whether the named point exists on this ship.
func (s *shipState) validControlPoint(point string) bool {
	switch point {
	case ControlPointWheel, ControlPointSails, ControlPointMast:
		return true
	}
	_, ok := s.cannons[point]
	return ok
}

// requestControl grants the point iff it is currently unowned. Denials are
// non-fatal: the caller simply does not become the owner and no state changes.
// Because the ship's mailbox serializes every request, simultaneous grabs are
// totally ordered on arrival and the first one processed wins.
//
// The mast is never arbitrated: it only frames the grabbing player's own
// camera, so it is always grantable and no owner is recorded.
func (s *shipState) requestControl(point, participant string) bool {
	if participant == "" || !s.validControlPoint(point) {
		return false
	}
	if point == ControlPointMast {
		return true
	}
	if s.phase != phaseAfloat {
		return false
	}
	if _, owned := s.owners[point]; owned {
		return false
	}
	s.owners[point] = participant
	return true
}

// releaseControl clears ownership iff the participant is the current owner.
// Releasing twice, or releasing a point never held, is a silent no-op.
func (s *shipState) releaseControl(point, participant string) bool {
	owner, ok := s.owners[point]
	if !ok || owner != participant {
		return false
	}
	delete(s.owners, point)
	if s.wheelOwnerGone(point) {
		s.wheelTurn = TurnNone
	}
	return true
}

// releaseAll drops every point the participant holds and returns the released
// names. Used when a participant disconnects and when a ship respawns.
func (s *shipState) releaseAll(participant string) []string {
	released := make([]string, 0, len(s.owners))
	for point, owner := range s.owners {
		if owner == participant {
			released = append(released, point)
		}
	}
	sort.Strings(released)
	for _, point := range released {
		delete(s.owners, point)
		if s.wheelOwnerGone(point) {
			s.wheelTurn = TurnNone
		}
	}
	return released
}

// forceReleaseAll clears every control point, used on respawn.
func (s *shipState) forceReleaseAll() {
	s.owners = make(map[string]string)
	s.wheelTurn = TurnNone
}

// isOwner reports whether the participant currently holds the point.
func (s *shipState) isOwner(point, participant string) bool {
	if participant == "" {
		return false
	}
	return s.owners[point] == participant
}

// wheelOwnerGone reports whether releasing the point leaves the wheel with a
// stale turning direction to clear.
func (s *shipState) wheelOwnerGone(point string) bool {
	if point != ControlPointWheel {
		return false
	}
	_, stillOwned := s.owners[ControlPointWheel]
	return !stillOwned
}

// controlPointViews lists every arbitrated point in stable order for
// snapshots. The mast is included for completeness but never carries an owner.
func (s *shipState) controlPointViews() []ControlPointView {
	names := []string{ControlPointWheel, ControlPointSails, ControlPointMast}
	for slot := range s.cannons {
		names = append(names, slot)
	}
	sort.Strings(names)

	views := make([]ControlPointView, 0, len(names))
	for _, name := range names {
		views = append(views, ControlPointView{Name: name, Owner: s.owners[name]})
	}
	return views
}
