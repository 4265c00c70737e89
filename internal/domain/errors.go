package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSenderMismatch  = errors.New("sender does not match authenticated user")
	ErrBlocked         = errors.New("communication between users is blocked")
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAMember      = errors.New("user is not a group member")
	ErrNotAnAdmin      = errors.New("only admins can post to this channel")
	ErrEmptyContent    = errors.New("empty message content")
	ErrContentTooLong  = errors.New("message content too long")
)

// BlockedMemberError rejects a whole group send when the sender has a block
// relation with any member. Carries the member so the client can say who.
type BlockedMemberError struct {
	MemberID string
}

func (e *BlockedMemberError) Error() string {
	return fmt.Sprintf("blocked communication with group member %s", e.MemberID)
}

func (e *BlockedMemberError) Unwrap() error { return ErrBlocked }
