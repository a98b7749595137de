package model

import (
	"fmt"
	"time"
)

// QueueMode selects the matchmaking queue
type QueueMode string

const (
	QueueModeRanked QueueMode = "ranked"
	QueueModeCasual QueueMode = "casual"
)

// ParseQueueMode validates a queue mode string
func ParseQueueMode(s string) (QueueMode, error) {
	switch QueueMode(s) {
	case QueueModeRanked, QueueModeCasual:
		return QueueMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQueueMode, s)
	}
}

// InviteDecision is the target's answer to an invite
type InviteDecision string

const (
	InviteAccept  InviteDecision = "accept"
	InviteDecline InviteDecision = "decline"
)

// ParseInviteDecision validates an invite decision string
func ParseInviteDecision(s string) (InviteDecision, error) {
	switch InviteDecision(s) {
	case InviteAccept, InviteDecline:
		return InviteDecision(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}

// QueueEntry is a ranked queue record. SkillScore is captured at enqueue.
type QueueEntry struct {
	PlayerID   PlayerID
	SkillScore int
	EnqueuedAt time.Time
}

// PendingInvite is an unanswered invite from Sender to Target.
// The reverse pair is a separate invite.
type PendingInvite struct {
	SenderID  PlayerID
	TargetID  PlayerID
	CreatedAt time.Time
}
