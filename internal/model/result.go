package model

import "time"

// MatchResultID identifies a stored match result
type MatchResultID string

// MatchResult is a finished match as persisted, with the rating change
// applied to each participant
type MatchResult struct {
	ID          MatchResultID
	Outcome     MatchOutcome
	SkillDelta1 int
	SkillDelta2 int
	RecordedAt  time.Time
}

// DeltaFor returns the rating change for one participant
func (r MatchResult) DeltaFor(id PlayerID) int {
	switch id {
	case r.Outcome.Participant1ID:
		return r.SkillDelta1
	case r.Outcome.Participant2ID:
		return r.SkillDelta2
	default:
		return 0
	}
}
