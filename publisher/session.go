package publisher

import (
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// presenceSession is the part of a Discord gateway session the publisher needs.
type presenceSession interface {
	Open() error
	Close() error
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
	// Ready reports whether the gateway connection is up and the session is usable.
	Ready() bool
	// Generation changes every time the gateway (re)connects. Discord forgets the presence on a new identify.
	Generation() uint64
}

// sessionOpener creates a not yet opened session for the given bot token.
type sessionOpener func(token string) (presenceSession, error)

type discordSession struct {
	*discordgo.Session
	connected  atomic.Bool
	generation atomic.Uint64
}

func newDiscordSession(token string) (presenceSession, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.ShouldReconnectOnError = true

	ds := &discordSession{Session: s}
	// discordgo reconnects on its own, follow the gateway state
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
		ds.generation.Add(1)
		ds.connected.Store(true)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		ds.connected.Store(false)
	})
	return ds, nil
}

func (s *discordSession) Open() error {
	if err := s.Session.Open(); err != nil {
		return err
	}
	s.connected.Store(true)
	return nil
}

func (s *discordSession) Close() error {
	s.connected.Store(false)
	return s.Session.Close()
}

func (s *discordSession) Ready() bool {
	return s.connected.Load()
}

func (s *discordSession) Generation() uint64 {
	return s.generation.Load()
}
