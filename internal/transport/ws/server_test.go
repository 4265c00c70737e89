package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/hub"
	"github.com/chatwave/dispatch-service/internal/service"

	"github.com/gorilla/websocket"
)

type fakeIdentity map[string]string

func (f fakeIdentity) Validate(_ context.Context, token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

type memGroups struct{ groups map[string]*domain.Group }

func (m *memGroups) GetGroup(_ context.Context, id string) (*domain.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

type memMessages struct {
	nextID int
	byID   map[string]*domain.Message
}

func (m *memMessages) Save(_ context.Context, msg *domain.Message) error {
	m.nextID++
	msg.ID = "m" + strconv.Itoa(m.nextID)
	msg.CreatedAt = time.Now()
	stored := *msg
	m.byID[msg.ID] = &stored
	return nil
}

func (m *memMessages) SetRead(_ context.Context, messageID, readerID string) (string, error) {
	msg, ok := m.byID[messageID]
	if !ok || msg.ReceiverID == nil || *msg.ReceiverID != readerID {
		return "", domain.ErrMessageNotFound
	}
	msg.Read = true
	return msg.SenderID, nil
}

type memBlocks struct{ pairs map[[2]string]bool }

func (m *memBlocks) IsBlocked(_ context.Context, a, b string) (bool, error) {
	return m.pairs[[2]string{a, b}] || m.pairs[[2]string{b, a}], nil
}

type testEnv struct {
	srv    *httptest.Server
	blocks *memBlocks
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	blocks := &memBlocks{pairs: map[[2]string]bool{}}
	groups := &memGroups{groups: map[string]*domain.Group{
		"g1": {ID: "g1", Members: []string{"u1", "u2"}, Admins: []string{"u1"}},
	}}
	h := hub.NewHub()
	dispatcher := service.NewDispatcher(groups, &memMessages{byID: map[string]*domain.Message{}}, blocks, h)

	wsServer := NewServer(h, fakeIdentity{"tok-u1": "u1", "tok-u2": "u2"}, dispatcher)

	srv := httptest.NewServer(http.HandlerFunc(wsServer.HandleWS))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, blocks: blocks}
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireEvent struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref"`
	Payload json.RawMessage `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, typ, ref string, payload any) {
	t.Helper()

	env := map[string]any{"type": typ}
	if ref != "" {
		env["ref"] = ref
	}
	if payload != nil {
		env["payload"] = payload
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev wireEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var ev wireEvent
	if err := conn.ReadJSON(&ev); err == nil {
		t.Fatalf("expected no event, got %s", ev.Type)
	}
}

func joinPersonal(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	send(t, conn, TypeJoin, "", nil)
	if ev := readEvent(t, conn); ev.Type != TypeAck {
		t.Fatalf("join reply = %s", ev.Type)
	}
}

func TestHandshake_RefusesMissingToken(t *testing.T) {
	e := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake refusal")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestHandshake_RefusesBadToken(t *testing.T) {
	e := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "?access_token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake refusal")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestDirectMessage_DeliveredToBothPersonalRooms(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "tok-u1")
	bob := e.dial(t, "tok-u2")
	joinPersonal(t, alice)
	joinPersonal(t, bob)

	send(t, alice, TypeSendMessage, "r1", SendMessagePayload{Sender: "u1", Receiver: "u2", Content: "hi"})

	// sender gets the room push plus the ack reply
	var gotPush, gotAck bool
	for i := 0; i < 2; i++ {
		ev := readEvent(t, alice)
		switch ev.Type {
		case hub.TypeReceiveMessage:
			gotPush = true
		case TypeAck:
			gotAck = true
			if ev.Ref != "r1" {
				t.Fatalf("ack ref = %q, want r1", ev.Ref)
			}
			var msg domain.Message
			if err := json.Unmarshal(ev.Payload, &msg); err != nil {
				t.Fatalf("ack payload: %v", err)
			}
			if msg.SenderID != "u1" || msg.ReceiverID == nil || *msg.ReceiverID != "u2" ||
				msg.Content != "hi" || msg.Read {
				t.Fatalf("persisted message = %+v", msg)
			}
		default:
			t.Fatalf("unexpected event %s", ev.Type)
		}
	}
	if !gotPush || !gotAck {
		t.Fatalf("sender missing events: push=%v ack=%v", gotPush, gotAck)
	}

	ev := readEvent(t, bob)
	if ev.Type != hub.TypeReceiveMessage {
		t.Fatalf("receiver event = %s, want %s", ev.Type, hub.TypeReceiveMessage)
	}
	var msg domain.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		t.Fatalf("push payload: %v", err)
	}
	if msg.Content != "hi" || msg.SenderID != "u1" {
		t.Fatalf("push message = %+v", msg)
	}
}

func TestDirectMessage_SenderMismatchRejected(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "tok-u1")
	joinPersonal(t, alice)

	send(t, alice, TypeSendMessage, "r1", SendMessagePayload{Sender: "u2", Receiver: "u1", Content: "spoofed"})

	ev := readEvent(t, alice)
	if ev.Type != TypeError {
		t.Fatalf("expected error reply, got %s", ev.Type)
	}
	var p ErrorPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if p.Code != codeSenderMismatch {
		t.Fatalf("code = %s, want %s", p.Code, codeSenderMismatch)
	}
}

func TestDirectMessage_BlockedNothingDelivered(t *testing.T) {
	e := newTestEnv(t)
	e.blocks.pairs[[2]string{"u1", "u2"}] = true

	alice := e.dial(t, "tok-u1")
	bob := e.dial(t, "tok-u2")
	joinPersonal(t, alice)
	joinPersonal(t, bob)

	send(t, bob, TypeSendMessage, "r1", SendMessagePayload{Sender: "u2", Receiver: "u1", Content: "hi"})

	ev := readEvent(t, bob)
	if ev.Type != TypeError {
		t.Fatalf("expected error reply, got %s", ev.Type)
	}
	var p ErrorPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if p.Code != codeBlocked {
		t.Fatalf("code = %s, want %s", p.Code, codeBlocked)
	}

	expectSilence(t, alice)
}

func TestGroupMessage_Flow(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "tok-u1")
	bob := e.dial(t, "tok-u2")

	send(t, alice, TypeJoinGroup, "", JoinGroupPayload{GroupID: "g1"})
	if ev := readEvent(t, alice); ev.Type != TypeAck {
		t.Fatalf("join-group reply = %s", ev.Type)
	}
	send(t, bob, TypeJoinGroup, "", JoinGroupPayload{GroupID: "g1"})
	if ev := readEvent(t, bob); ev.Type != TypeAck {
		t.Fatalf("join-group reply = %s", ev.Type)
	}

	send(t, alice, TypeSendGroupMessage, "r2", SendGroupMessagePayload{Sender: "u1", GroupID: "g1", Content: "hello all"})

	var sawPush bool
	for i := 0; i < 2; i++ {
		ev := readEvent(t, alice)
		if ev.Type == hub.TypeReceiveGroupMessage {
			sawPush = true
		}
	}
	if !sawPush {
		t.Fatalf("sender did not get the group push")
	}

	ev := readEvent(t, bob)
	if ev.Type != hub.TypeReceiveGroupMessage {
		t.Fatalf("member event = %s", ev.Type)
	}
}

func TestMarkAsRead_RecipientOnly(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "tok-u1")
	bob := e.dial(t, "tok-u2")
	joinPersonal(t, alice)
	joinPersonal(t, bob)

	send(t, alice, TypeSendMessage, "r1", SendMessagePayload{Sender: "u1", Receiver: "u2", Content: "hi"})
	var msgID string
	for i := 0; i < 2; i++ {
		if ev := readEvent(t, alice); ev.Type == TypeAck {
			var msg domain.Message
			if err := json.Unmarshal(ev.Payload, &msg); err != nil {
				t.Fatalf("ack payload: %v", err)
			}
			msgID = msg.ID
		}
	}
	if msgID == "" {
		t.Fatalf("no ack with message id")
	}
	if ev := readEvent(t, bob); ev.Type != hub.TypeReceiveMessage {
		t.Fatalf("receiver event = %s", ev.Type)
	}

	// the sender cannot mark their own outgoing message read
	send(t, alice, TypeMarkAsRead, "r2", MarkAsReadPayload{MessageID: msgID})
	ev := readEvent(t, alice)
	if ev.Type != TypeError {
		t.Fatalf("sender mark-as-read reply = %s, want error", ev.Type)
	}
	var p ErrorPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if p.Code != codeNotFound {
		t.Fatalf("code = %s, want %s", p.Code, codeNotFound)
	}

	// the recipient can, and the sender gets the receipt
	send(t, bob, TypeMarkAsRead, "r3", MarkAsReadPayload{MessageID: msgID})
	if ev := readEvent(t, bob); ev.Type != TypeAck {
		t.Fatalf("recipient mark-as-read reply = %s", ev.Type)
	}
	receipt := readEvent(t, alice)
	if receipt.Type != hub.TypeMessageRead {
		t.Fatalf("sender event = %s, want %s", receipt.Type, hub.TypeMessageRead)
	}
	var rp struct {
		MessageID string `json:"message_id"`
		ReaderID  string `json:"reader_id"`
	}
	if err := json.Unmarshal(receipt.Payload, &rp); err != nil {
		t.Fatalf("receipt payload: %v", err)
	}
	if rp.MessageID != msgID || rp.ReaderID != "u2" {
		t.Fatalf("receipt = %+v", rp)
	}
}

func TestUnknownEventType(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "tok-u1")
	send(t, alice, "make-coffee", "r1", nil)

	ev := readEvent(t, alice)
	if ev.Type != TypeError {
		t.Fatalf("expected error reply, got %s", ev.Type)
	}
	var p ErrorPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if p.Code != codeUnknownEvent {
		t.Fatalf("code = %s, want %s", p.Code, codeUnknownEvent)
	}
}
