package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	err    error
	closed bool
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestPublishFansOut(t *testing.T) {
	t.Cleanup(Reset)

	pub := &recordingPublisher{}
	SetPublisher(pub)

	var got []Event
	AddListener(func(ev Event) { got = append(got, ev) })

	Publish(context.Background(), Event{Type: CallCreated, ActorID: 3, ResourceID: 9})

	require.Len(t, got, 1)
	assert.Equal(t, CallCreated, got[0].Type)
	assert.False(t, got[0].OccurredAt.IsZero())
	assert.Equal(t, []string{CallCreated}, pub.keys)

	require.NoError(t, Close())
	assert.True(t, pub.closed)
}

func TestPublishSwallowsBrokerErrors(t *testing.T) {
	t.Cleanup(Reset)

	SetPublisher(&recordingPublisher{err: errors.New("channel closed")})

	listened := false
	AddListener(func(Event) { listened = true })

	assert.NotPanics(t, func() {
		Publish(context.Background(), Event{Type: UserFlushed})
	})
	assert.True(t, listened)
}

func TestInitWithoutURL(t *testing.T) {
	t.Cleanup(Reset)

	require.NoError(t, Init("", "crm.events"))
	assert.NoError(t, Close())
}
