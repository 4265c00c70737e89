package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/hub"
)

type GroupSource interface {
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
}

type MessageStore interface {
	Save(ctx context.Context, m *domain.Message) error
	SetRead(ctx context.Context, messageID, readerID string) (senderID string, err error)
}

type Blocklist interface {
	IsBlocked(ctx context.Context, userA, userB string) (bool, error)
}

type Broadcaster interface {
	Broadcast(roomID string, ev hub.Event)
	BroadcastRooms(roomIDs []string, ev hub.Event)
}

// ReadReceipt is pushed to the sender's personal room when a recipient
// marks one of their messages as read.
type ReadReceipt struct {
	MessageID string `json:"message_id"`
	ReaderID  string `json:"reader_id"`
}

// Dispatcher validates inbound send requests, persists them and fans them
// out. Every request either fully succeeds (persisted, then dispatched) or
// fails with a typed reason; nothing is broadcast before it is stored.
type Dispatcher struct {
	groups   GroupSource
	messages MessageStore
	blocks   Blocklist
	rooms    Broadcaster

	maxContentLen  int
	persistTimeout time.Duration
}

func NewDispatcher(groups GroupSource, messages MessageStore, blocks Blocklist, rooms Broadcaster) *Dispatcher {
	return &Dispatcher{
		groups:         groups,
		messages:       messages,
		blocks:         blocks,
		rooms:          rooms,
		maxContentLen:  4000,
		persistTimeout: 5 * time.Second,
	}
}

func (d *Dispatcher) SetMaxContentLen(n int) {
	if n > 0 {
		d.maxContentLen = n
	}
}

func (d *Dispatcher) SetPersistTimeout(t time.Duration) {
	if t > 0 {
		d.persistTimeout = t
	}
}

// SendDirect handles a direct message from the authenticated user authID.
// The declared sender must match authID; a connection cannot send on behalf
// of another user.
func (d *Dispatcher) SendDirect(ctx context.Context, authID, sender, receiver, content string) (*domain.Message, error) {
	if authID == "" || sender != authID {
		return nil, domain.ErrSenderMismatch
	}
	content, err := d.validateContent(content)
	if err != nil {
		return nil, err
	}

	blocked, err := d.blocks.IsBlocked(ctx, sender, receiver)
	if err != nil {
		return nil, fmt.Errorf("block check: %w", err)
	}
	if blocked {
		return nil, domain.ErrBlocked
	}

	msg := &domain.Message{
		SenderID:   sender,
		ReceiverID: &receiver,
		Content:    content,
	}
	if err := d.persist(ctx, msg); err != nil {
		return nil, err
	}

	// Both personal rooms get the push so the sender's other devices see
	// their own sent message too.
	d.rooms.BroadcastRooms(
		[]string{hub.PersonalRoom(sender), hub.PersonalRoom(receiver)},
		hub.Event{Type: hub.TypeReceiveMessage, Payload: msg},
	)
	return msg, nil
}

// SendGroup handles a group or channel message. Membership and the admin
// restriction are checked against the durable group row, not room-join
// state. A single blocked pair anywhere in the member list rejects the
// whole send; partial delivery would surprise more than it helps.
func (d *Dispatcher) SendGroup(ctx context.Context, authID, sender, groupID, content string) (*domain.Message, error) {
	if authID == "" || sender != authID {
		return nil, domain.ErrSenderMismatch
	}
	content, err := d.validateContent(content)
	if err != nil {
		return nil, err
	}

	group, err := d.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(sender) {
		return nil, domain.ErrNotAMember
	}
	if group.Channel && !group.IsAdmin(sender) {
		return nil, domain.ErrNotAnAdmin
	}

	for _, member := range group.Members {
		if member == sender {
			continue
		}
		blocked, err := d.blocks.IsBlocked(ctx, sender, member)
		if err != nil {
			return nil, fmt.Errorf("block check: %w", err)
		}
		if blocked {
			return nil, &domain.BlockedMemberError{MemberID: member}
		}
	}

	msg := &domain.Message{
		SenderID: sender,
		Content:  content,
	}
	if group.Channel {
		msg.ChannelID = &group.ID
	} else {
		msg.GroupID = &group.ID
	}
	if err := d.persist(ctx, msg); err != nil {
		return nil, err
	}

	d.rooms.Broadcast(hub.GroupRoom(group.ID),
		hub.Event{Type: hub.TypeReceiveGroupMessage, Payload: msg})
	return msg, nil
}

// MarkRead sets the read flag and notifies the original sender's personal
// room so read receipts update without polling. Only the message's recipient
// may mark it; anyone else gets not-found, same as an unknown id. Idempotent:
// marking an already-read message succeeds and notifies again.
func (d *Dispatcher) MarkRead(ctx context.Context, readerID, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, d.persistTimeout)
	defer cancel()

	senderID, err := d.messages.SetRead(ctx, messageID, readerID)
	if err != nil {
		return err
	}

	d.rooms.Broadcast(hub.PersonalRoom(senderID), hub.Event{
		Type:    hub.TypeMessageRead,
		Payload: ReadReceipt{MessageID: messageID, ReaderID: readerID},
	})
	return nil
}

func (d *Dispatcher) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.ErrEmptyContent
	}
	if len(content) > d.maxContentLen {
		return "", domain.ErrContentTooLong
	}
	return content, nil
}

// persist writes under a bounded window. A timeout here is reported to the
// caller as a failure; the client resubmits, the core never retries.
func (d *Dispatcher) persist(ctx context.Context, msg *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.persistTimeout)
	defer cancel()

	if err := d.messages.Save(ctx, msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	return nil
}
