package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(multiple bool) error {
	args := m.Called(multiple)
	return args.Error(0)
}

func (m *mockAcknowledger) Nack(multiple, requeue bool) error {
	args := m.Called(multiple, requeue)
	return args.Error(0)
}

func TestDecodeEvent(t *testing.T) {
	event := NewEvent(EventTaskCreated, "user-1", "task-1")
	body, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventTaskCreated, decoded.Type)
	assert.Equal(t, "user-1", decoded.UserID)
	assert.Equal(t, "task-1", decoded.TaskID)
	assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))

	_, err = DecodeEvent([]byte(`{"user_id":"u"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	body, _ := json.Marshal(NewEvent(EventUserRegistered, "user-1", ""))

	t.Run("ack on success", func(t *testing.T) {
		ack := new(mockAcknowledger)
		ack.On("Ack", false).Return(nil).Once()

		var seen Event
		err := settle(ack, body, func(e Event) error { seen = e; return nil })
		assert.NoError(t, err)
		assert.Equal(t, EventUserRegistered, seen.Type)
		ack.AssertExpectations(t)
	})

	t.Run("requeue on handler failure", func(t *testing.T) {
		ack := new(mockAcknowledger)
		ack.On("Nack", false, true).Return(nil).Once()

		err := settle(ack, body, func(Event) error { return errors.New("boom") })
		assert.EqualError(t, err, "boom")
		ack.AssertExpectations(t)
	})

	t.Run("drop poison message", func(t *testing.T) {
		ack := new(mockAcknowledger)
		ack.On("Nack", false, false).Return(nil).Once()

		called := false
		err := settle(ack, []byte("garbage"), func(Event) error { called = true; return nil })
		assert.Error(t, err)
		assert.False(t, called)
		ack.AssertExpectations(t)
	})
}

func TestPublishWithoutChannel(t *testing.T) {
	c := &Client{}
	assert.ErrorIs(t, c.PublishEvent(NewEvent(EventTaskDeleted, "u", "t")), ErrChannelUnavailable)
	assert.NoError(t, NoopPublisher{}.PublishEvent(NewEvent(EventTaskDeleted, "u", "t")))
}
