package message

import (
	"context"
	"errors"
	"time"

	"testing"

	"github.com/Trandev/Medlink/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type fakeMessageStore struct {
	messages  map[uuid.UUID]*model.Message
	failNext  error
	createSeq int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[uuid.UUID]*model.Message)}
}

func (f *fakeMessageStore) Create(_ context.Context, msg *model.Message) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.createSeq++
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now().Add(time.Duration(f.createSeq) * time.Millisecond)
	msg.UpdatedAt = msg.CreatedAt
	cp := *msg
	f.messages[msg.ID] = &cp
	return nil
}

func (f *fakeMessageStore) GetByID(_ context.Context, id uuid.UUID) (*model.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessageStore) UpdateContent(_ context.Context, id uuid.UUID, content string) (*model.Message, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	m.Content = content
	m.UpdatedAt = time.Now()
	cp := *m
	return &cp, nil
}

func (f *fakeMessageStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.messages[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.messages, id)
	return nil
}

func (f *fakeMessageStore) MarkRead(_ context.Context, readerID, senderID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.Receiver == readerID && m.Sender == senderID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageStore) MessagesBetween(_ context.Context, a, b uuid.UUID) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) Conversations(_ context.Context, _ uuid.UUID) ([]model.Conversation, error) {
	return nil, nil
}

type emitted struct {
	userID uuid.UUID
	event  string
}

type fakeEmitter struct {
	events []emitted
}

func (f *fakeEmitter) Emit(userID uuid.UUID, event string, _ any) {
	f.events = append(f.events, emitted{userID: userID, event: event})
}

func (f *fakeEmitter) eventsFor(userID uuid.UUID) []string {
	var out []string
	for _, e := range f.events {
		if e.userID == userID {
			out = append(out, e.event)
		}
	}
	return out
}

type MessageServiceTestSuite struct {
	suite.Suite
	store    *fakeMessageStore
	emitter  *fakeEmitter
	service  *MessageService
	sender   uuid.UUID
	receiver uuid.UUID
}

func TestMessageServiceSuite(t *testing.T) {
	suite.Run(t, new(MessageServiceTestSuite))
}

func (s *MessageServiceTestSuite) SetupTest() {
	s.store = newFakeMessageStore()
	s.emitter = &fakeEmitter{}
	s.service = NewMessageService(s.store, s.emitter)
	s.sender = uuid.New()
	s.receiver = uuid.New()
}

func (s *MessageServiceTestSuite) TestSendFansOutToBothParticipants() {
	msg, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "hello doctor")
	s.Require().NoError(err)
	s.Require().NotNil(msg)
	s.Equal(s.sender, msg.Sender)
	s.False(msg.Read)

	s.Equal([]string{EventReceiveMessage}, s.emitter.eventsFor(s.sender),
		"sender's other sessions must receive the event too")
	s.Equal([]string{EventReceiveMessage}, s.emitter.eventsFor(s.receiver))
	s.Len(s.emitter.events, 2)
}

func (s *MessageServiceTestSuite) TestSendPersistenceFailureSuppressesEmission() {
	s.store.failNext = errors.New("connection reset")

	_, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "hello")
	s.Require().Error(err)
	s.Empty(s.emitter.events, "no event may be emitted for a message that was not stored")
}

func (s *MessageServiceTestSuite) TestSendRejectsInvalidInput() {
	_, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "   ")
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.Send(s.T().Context(), s.sender, uuid.Nil, "hello")
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.Send(s.T().Context(), s.sender, s.sender, "talking to myself")
	s.ErrorIs(err, model.ErrInvalidInput)
	s.Empty(s.emitter.events)
}

func (s *MessageServiceTestSuite) TestEditBySenderEmitsToBoth() {
	msg, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "orignal")
	s.Require().NoError(err)
	s.emitter.events = nil

	updated, err := s.service.Edit(s.T().Context(), s.sender, msg.ID, "original")
	s.Require().NoError(err)
	s.Equal("original", updated.Content)

	s.Equal([]string{EventMessageEdited}, s.emitter.eventsFor(s.sender))
	s.Equal([]string{EventMessageEdited}, s.emitter.eventsFor(s.receiver))
}

func (s *MessageServiceTestSuite) TestEditByThirdPartyForbidden() {
	msg, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "private")
	s.Require().NoError(err)
	s.emitter.events = nil

	intruder := uuid.New()
	_, err = s.service.Edit(s.T().Context(), intruder, msg.ID, "hijacked")
	s.ErrorIs(err, model.ErrForbidden)

	// The receiver cannot edit either; only the sender owns the message.
	_, err = s.service.Edit(s.T().Context(), s.receiver, msg.ID, "hijacked")
	s.ErrorIs(err, model.ErrForbidden)

	stored, err := s.store.GetByID(s.T().Context(), msg.ID)
	s.Require().NoError(err)
	s.Equal("private", stored.Content, "forbidden edit must not mutate the message")
	s.Empty(s.emitter.events, "forbidden edit must not emit")
}

func (s *MessageServiceTestSuite) TestDeleteBySender() {
	msg, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "oops")
	s.Require().NoError(err)
	s.emitter.events = nil

	s.Require().NoError(s.service.Delete(s.T().Context(), s.sender, msg.ID))

	_, err = s.store.GetByID(s.T().Context(), msg.ID)
	s.ErrorIs(err, model.ErrNotFound)
	s.Equal([]string{EventMessageDeleted}, s.emitter.eventsFor(s.sender))
	s.Equal([]string{EventMessageDeleted}, s.emitter.eventsFor(s.receiver))
}

func (s *MessageServiceTestSuite) TestDeleteByThirdPartyForbidden() {
	msg, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "keep me")
	s.Require().NoError(err)
	s.emitter.events = nil

	err = s.service.Delete(s.T().Context(), s.receiver, msg.ID)
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.store.GetByID(s.T().Context(), msg.ID)
	s.NoError(err, "message must survive a forbidden delete")
	s.Empty(s.emitter.events)
}

func (s *MessageServiceTestSuite) TestMarkReadIsIdempotentAndSilent() {
	_, err := s.service.Send(s.T().Context(), s.sender, s.receiver, "one")
	s.Require().NoError(err)
	_, err = s.service.Send(s.T().Context(), s.sender, s.receiver, "two")
	s.Require().NoError(err)
	s.emitter.events = nil

	updated, err := s.service.MarkRead(s.T().Context(), s.receiver, s.sender)
	s.Require().NoError(err)
	s.EqualValues(2, updated)

	updated, err = s.service.MarkRead(s.T().Context(), s.receiver, s.sender)
	s.Require().NoError(err)
	s.Zero(updated, "second pass has nothing left to flip")
	s.Empty(s.emitter.events, "read receipts carry no realtime event")
}
