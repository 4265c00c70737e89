package ws

import (
	"encoding/json"
	"errors"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/hub"
)

// Inbound event types. Everything a client may send is one of these;
// anything else gets an unknown_event error back.
const (
	TypeJoin             = "join"
	TypeJoinGroup        = "join-group"
	TypeSendMessage      = "send-message"
	TypeSendGroupMessage = "send-group-message"
	TypeMarkAsRead       = "mark-as-read"
)

// Reply types. Every inbound event is answered with exactly one of these,
// carrying the client's ref when one was supplied.
const (
	TypeAck   = "ack"
	TypeError = "error"
)

type Envelope struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinGroupPayload struct {
	GroupID string `json:"group_id"`
}

type SendMessagePayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

type SendGroupMessagePayload struct {
	Sender  string `json:"sender"`
	GroupID string `json:"group_id"`
	Content string `json:"content"`
}

type MarkAsReadPayload struct {
	MessageID string `json:"message_id"`
}

type AckPayload struct {
	Status string `json:"status"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Wire error codes.
const (
	codeSenderMismatch = "sender_mismatch"
	codeBlocked        = "blocked"
	codeBlockedMember  = "blocked_member"
	codeNotFound       = "not_found"
	codeNotAMember     = "not_a_member"
	codeNotAnAdmin     = "not_an_admin"
	codeBadRequest     = "bad_request"
	codeUnknownEvent   = "unknown_event"
	codePersistFailed  = "persist_failed"
)

var (
	errBadEnvelope = errors.New("malformed event envelope")
	errBadPayload  = errors.New("malformed event payload")
)

func ackEvent(ref string, payload any) hub.Event {
	return hub.Event{Type: TypeAck, Ref: ref, Payload: payload}
}

// errorEvent maps a dispatch failure onto a typed wire error. Unrecognized
// errors are assumed transient (store or identity outage) and marked
// retryable; the connection stays open either way.
func errorEvent(ref string, err error) hub.Event {
	code := codePersistFailed
	retryable := false

	var bm *domain.BlockedMemberError
	switch {
	case errors.As(err, &bm):
		code = codeBlockedMember
	case errors.Is(err, domain.ErrSenderMismatch):
		code = codeSenderMismatch
	case errors.Is(err, domain.ErrBlocked):
		code = codeBlocked
	case errors.Is(err, domain.ErrNotAMember):
		code = codeNotAMember
	case errors.Is(err, domain.ErrNotAnAdmin):
		code = codeNotAnAdmin
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		code = codeNotFound
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, errBadEnvelope),
		errors.Is(err, errBadPayload):
		code = codeBadRequest
	default:
		// store outage, identity outage, or a persist timeout
		retryable = true
	}

	return hub.Event{
		Type:    TypeError,
		Ref:     ref,
		Payload: ErrorPayload{Code: code, Error: err.Error(), Retryable: retryable},
	}
}
