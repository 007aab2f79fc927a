package publisher

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/samgozman/tvs-bot/pkg/errlvl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSession struct {
	mock.Mock
	generation atomic.Uint64
}

func (m *MockSession) Open() error {
	return m.Called().Error(0)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

func (m *MockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	return m.Called(usd).Error(0)
}

func (m *MockSession) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockSession) Generation() uint64 {
	return m.generation.Load()
}

func watching(name string) discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{Name: name, Type: discordgo.ActivityTypeWatching}},
		Status:     "online",
	}
}

// newTestPublisher returns a publisher whose sessions come from the given list, in order.
func newTestPublisher(tokens TokenSource, sessions ...*MockSession) (*DiscordPublisher, *int) {
	p := NewDiscordPublisher(tokens, "")
	p.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	opened := 0
	p.open = func(token string) (presenceSession, error) {
		if opened >= len(sessions) {
			return nil, errors.New("no more sessions")
		}
		s := sessions[opened]
		opened++
		return s, nil
	}
	return p, &opened
}

func TestDiscordPublisher_Publish(t *testing.T) {
	s := new(MockSession)
	s.On("Open").Return(nil).Once()
	s.On("Ready").Return(true).Maybe()
	s.On("UpdateStatusComplex", watching("TVS: $8.67B | RedStone Oracle")).Return(nil).Once()
	s.On("UpdateStatusComplex", watching("TVS: ~$8.67B | RedStone Oracle")).Return(nil).Once()

	p, opened := newTestPublisher(StaticToken("token"), s)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "$8.67B"))
	// same text on the same session is a no-op
	require.NoError(t, p.Publish(ctx, "$8.67B"))
	require.NoError(t, p.Publish(ctx, "~$8.67B"))

	assert.Equal(t, 1, *opened)
	s.AssertExpectations(t)
}

func TestDiscordPublisher_Publish_reconnectsWhenNotReady(t *testing.T) {
	stale := new(MockSession)
	stale.On("Open").Return(nil).Once()
	stale.On("Ready").Return(false)
	stale.On("Close").Return(nil).Once()
	stale.On("UpdateStatusComplex", mock.Anything).Return(nil).Once()

	fresh := new(MockSession)
	fresh.On("Open").Return(nil).Once()
	fresh.On("Ready").Return(true).Maybe()
	fresh.On("UpdateStatusComplex", watching("TVS: $8.67B | RedStone Oracle")).Return(nil).Once()

	p, opened := newTestPublisher(StaticToken("token"), stale, fresh)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "$8.67B"))
	// stale session is replaced and the same text is sent again
	require.NoError(t, p.Publish(ctx, "$8.67B"))

	assert.Equal(t, 2, *opened)
	stale.AssertExpectations(t)
	fresh.AssertExpectations(t)
}

func TestDiscordPublisher_Publish_resendsAfterGatewayReconnect(t *testing.T) {
	s := new(MockSession)
	s.On("Open").Return(nil).Once()
	s.On("Ready").Return(true).Maybe()
	s.On("UpdateStatusComplex", watching("TVS: $8.67B | RedStone Oracle")).Return(nil).Twice()

	p, opened := newTestPublisher(StaticToken("token"), s)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "$8.67B"))
	require.NoError(t, p.Publish(ctx, "$8.67B"))

	// discordgo reconnected on its own, the session stays ready but the presence is gone
	s.generation.Add(1)
	require.NoError(t, p.Publish(ctx, "$8.67B"))
	require.NoError(t, p.Publish(ctx, "$8.67B"))

	assert.Equal(t, 1, *opened)
	s.AssertExpectations(t)
}

func TestDiscordPublisher_Publish_openRetries(t *testing.T) {
	s := new(MockSession)
	s.On("Open").Return(errors.New("gateway busy")).Twice()
	s.On("Open").Return(nil).Once()
	s.On("Ready").Return(true).Maybe()
	s.On("UpdateStatusComplex", mock.Anything).Return(nil).Once()

	p := NewDiscordPublisher(StaticToken("token"), "")
	p.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	p.open = func(string) (presenceSession, error) { return s, nil }

	require.NoError(t, p.Publish(context.Background(), "$1M"))
	s.AssertExpectations(t)
}

func TestDiscordPublisher_Publish_errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		p, opened := newTestPublisher(StaticToken(""))
		err := p.Publish(context.Background(), "$1M")

		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, errNoToken)
		assert.Equal(t, errlvl.ERROR, errlvl.Of(err))
		assert.Equal(t, 0, *opened)
	})

	t.Run("open keeps failing", func(t *testing.T) {
		s := new(MockSession)
		s.On("Open").Return(errors.New("4004: authentication failed"))

		p, _ := newTestPublisher(StaticToken("bad"), s)
		p.open = func(string) (presenceSession, error) { return s, nil }

		err := p.Publish(context.Background(), "$1M")
		assert.ErrorIs(t, err, errConnect)
		assert.Contains(t, err.Error(), "authentication failed")
		s.AssertNumberOfCalls(t, "Open", maxOpenRetries+1)
	})

	t.Run("update fails and session is dropped", func(t *testing.T) {
		s := new(MockSession)
		s.On("Open").Return(nil).Once()
		s.On("Ready").Return(true).Maybe()
		s.On("UpdateStatusComplex", mock.Anything).Return(errors.New("websocket closed")).Once()
		s.On("Close").Return(nil).Once()

		p, _ := newTestPublisher(StaticToken("token"), s)
		err := p.Publish(context.Background(), "$1M")

		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, errUpdatePresence)
		assert.Equal(t, errlvl.WARN, errlvl.Of(err))
		assert.Nil(t, p.session)
		s.AssertExpectations(t)
	})
}

func TestDiscordPublisher_Disconnect(t *testing.T) {
	t.Run("without session", func(t *testing.T) {
		p := NewDiscordPublisher(StaticToken("token"), "")
		assert.NoError(t, p.Disconnect())
		assert.NoError(t, p.Disconnect())
	})

	t.Run("with session", func(t *testing.T) {
		s := new(MockSession)
		s.On("Open").Return(nil).Once()
		s.On("Ready").Return(true).Maybe()
		s.On("UpdateStatusComplex", mock.Anything).Return(nil).Once()
		s.On("Close").Return(errors.New("already closed")).Once()

		p, _ := newTestPublisher(StaticToken("token"), s)
		require.NoError(t, p.Publish(context.Background(), "$1M"))

		err := p.Disconnect()
		assert.ErrorIs(t, err, errDisconnect)
		assert.Nil(t, p.session)
		// second call has nothing to close
		assert.NoError(t, p.Disconnect())
		s.AssertExpectations(t)
	})
}

func TestDiscordPublisher_activityName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		text     string
		want     string
	}{
		{name: "default template", template: "", text: "$8.67B", want: "TVS: $8.67B | RedStone Oracle"},
		{name: "custom template", template: "Secured %s", text: "$8.67B", want: "Secured $8.67B"},
		{name: "template without verb falls back", template: "TVS", text: "$1M", want: "TVS: $1M | RedStone Oracle"},
		{name: "markup stripped", template: "%s", text: "<b>$8.67B</b>", want: "$8.67B"},
		{name: "entities kept readable", template: "%s", text: "A & B", want: "A & B"},
		{name: "unavailable", template: "", text: "⚠️ Data Unavailable", want: "TVS: ⚠️ Data Unavailable | RedStone Oracle"},
		{name: "truncated", template: "%s", text: strings.Repeat("x", 200), want: strings.Repeat("x", 128)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDiscordPublisher(StaticToken("token"), tt.template)
			assert.Equal(t, tt.want, p.activityName(tt.text))
		})
	}
}
