package publisher

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samgozman/tvs-bot/pkg/errlvl"
)

const (
	// DefaultTemplate is the presence text around the published value.
	DefaultTemplate = "TVS: %s | RedStone Oracle"

	// maxActivityName is the longest activity name Discord accepts.
	maxActivityName = 128
	maxOpenRetries  = 3
)

// DiscordPublisher publishes text as the "Watching ..." presence of a Discord bot.
//
// It lazily opens a single gateway session, reuses it while it is ready and reconnects otherwise.
// Publish and Disconnect are safe for concurrent use.
type DiscordPublisher struct {
	tokens     TokenSource
	template   string
	open       sessionOpener
	newBackOff func() backoff.BackOff
	policy     *bluemonday.Policy
	logger     *slog.Logger

	mu       sync.Mutex
	session  presenceSession
	lastText string // last presence name set on the current session
	lastGen  uint64 // session generation lastText was set on
}

// NewDiscordPublisher creates a publisher that authenticates with tokens from the given source.
// The template must contain a single %s for the published text; DefaultTemplate is used otherwise.
func NewDiscordPublisher(tokens TokenSource, template string) *DiscordPublisher {
	if strings.Count(template, "%s") != 1 {
		template = DefaultTemplate
	}
	return &DiscordPublisher{
		tokens:   tokens,
		template: template,
		open:     newDiscordSession,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		policy: bluemonday.StrictPolicy(),
		logger: slog.Default(),
	}
}

// Publish sets the bot presence to the given text. Publishing the text that is already shown is a no-op.
func (p *DiscordPublisher) Publish(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, err := p.connect(ctx)
	if err != nil {
		return err
	}

	name := p.activityName(text)
	gen := session.Generation()
	if name == p.lastText && gen == p.lastGen {
		p.logger.Debug("[publisher][Publish] presence unchanged", "text", name)
		return nil
	}

	err = session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: name,
				Type: discordgo.ActivityTypeWatching,
			},
		},
		Status: string(discordgo.StatusOnline),
	})
	if err != nil {
		// The session is most likely broken, start over on the next publish.
		p.drop()
		return newError(errlvl.WARN, errUpdatePresence, err)
	}

	p.lastText = name
	p.lastGen = gen
	p.logger.Info("[publisher][Publish] presence updated", "text", name)
	return nil
}

// Disconnect closes the gateway session. It does nothing if there is no session.
func (p *DiscordPublisher) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}

	err := p.session.Close()
	p.session = nil
	p.lastText = ""
	if err != nil {
		return newError(errlvl.WARN, errDisconnect, err)
	}
	return nil
}

// connect returns the cached session if it is ready, or opens a new one. Must be called with p.mu held.
func (p *DiscordPublisher) connect(ctx context.Context) (presenceSession, error) {
	if p.session != nil && p.session.Ready() {
		return p.session, nil
	}
	if p.session != nil {
		p.logger.Info("[publisher][connect] session is not ready, reconnecting")
		p.drop()
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, newError(errlvl.ERROR, errNoToken, err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), maxOpenRetries), ctx)
	session, err := backoff.RetryWithData[presenceSession](func() (presenceSession, error) {
		s, err := p.open(token)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := s.Open(); err != nil {
			p.logger.Warn("[publisher][connect] discord gateway not ready yet", "error", err)
			return nil, err
		}
		return s, nil
	}, b)
	if err != nil {
		return nil, newError(errlvl.ERROR, errConnect, err)
	}

	p.logger.Info("[publisher][connect] connected to discord")
	p.session = session
	p.lastText = ""
	return session, nil
}

// drop closes and forgets the current session. Must be called with p.mu held.
func (p *DiscordPublisher) drop() {
	if p.session == nil {
		return
	}
	if err := p.session.Close(); err != nil {
		p.logger.Debug("[publisher][drop] error closing session", "error", err)
	}
	p.session = nil
	p.lastText = ""
}

// activityName renders the template with plain text and trims it to the Discord limit.
func (p *DiscordPublisher) activityName(text string) string {
	clean := html.UnescapeString(p.policy.Sanitize(text))
	name := strings.TrimSpace(fmt.Sprintf(p.template, clean))

	r := []rune(name)
	if len(r) > maxActivityName {
		name = string(r[:maxActivityName])
	}
	return name
}
