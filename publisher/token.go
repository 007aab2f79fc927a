package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/singleflight"
	"resty.dev/v3"
)

// TokenSource provides the bot credential used to open a Discord session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a bot token taken as is, e.g. from DISCORD_BOT_TOKEN.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty bot token")
	}
	return string(t), nil
}

// BrokerTokenSource obtains the bot token from the Replit connectors API.
// Tokens with an expiry are cached until they expire; concurrent refreshes share one request.
type BrokerTokenSource struct {
	url      string
	identity string // value of the X_REPLIT_TOKEN header
	client   *resty.Client
	attempts uint
	delay    time.Duration
	now      func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewBrokerTokenSource creates a token source for the connectors host.
// Either replIdentity or webReplRenewal must be set; replIdentity wins if both are.
func NewBrokerTokenSource(hostname, replIdentity, webReplRenewal string) (*BrokerTokenSource, error) {
	if hostname == "" {
		return nil, errors.New("token broker hostname is empty")
	}

	var identity string
	switch {
	case replIdentity != "":
		identity = "repl " + replIdentity
	case webReplRenewal != "":
		identity = "depl " + webReplRenewal
	default:
		return nil, errors.New("X_REPLIT_TOKEN not found for repl/depl")
	}

	base := hostname
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	return &BrokerTokenSource{
		url:      strings.TrimRight(base, "/") + "/api/v2/connection",
		identity: identity,
		client: resty.New().
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
		attempts: 3,
		delay:    time.Second,
		now:      time.Now,
	}, nil
}

// Token returns the cached token if it has not expired yet, otherwise asks the broker.
func (b *BrokerTokenSource) Token(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.token != "" && !b.expiresAt.IsZero() && b.expiresAt.After(b.now()) {
		t := b.token
		b.mu.Unlock()
		return t, nil
	}
	b.mu.Unlock()

	v, err, _ := b.group.Do("token", func() (any, error) {
		return b.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *BrokerTokenSource) refresh(ctx context.Context) (string, error) {
	var conn *brokerConnection
	err := retry.Do(func() error {
		c, err := b.fetch(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(b.attempts),
		retry.Delay(b.delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}

	token := conn.Settings.AccessToken
	if token == "" {
		token = conn.Settings.OAuth.Credentials.AccessToken
	}
	if token == "" {
		return "", errNotConnected
	}

	var expiresAt time.Time
	if conn.Settings.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, conn.Settings.ExpiresAt); err == nil {
			expiresAt = t
		}
	}

	b.mu.Lock()
	b.token = token
	b.expiresAt = expiresAt
	b.mu.Unlock()

	return token, nil
}

func (b *BrokerTokenSource) fetch(ctx context.Context) (*brokerConnection, error) {
	var out brokerResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X_REPLIT_TOKEN", b.identity).
		SetQueryParams(map[string]string{
			"include_secrets": "true",
			"connector_names": "discord",
		}).
		SetResult(&out).
		Get(b.url)
	if err != nil {
		return nil, errors.Join(errBroker, err)
	}

	if !resp.IsSuccess() {
		err := fmt.Errorf("%w: status %d", errBroker, resp.StatusCode())
		if resp.StatusCode() < 500 {
			return nil, retry.Unrecoverable(err)
		}
		return nil, err
	}

	if len(out.Items) == 0 {
		return nil, retry.Unrecoverable(errNotConnected)
	}
	return &out.Items[0], nil
}

type brokerResponse struct {
	Items []brokerConnection `json:"items"`
}

type brokerConnection struct {
	Settings struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   string `json:"expires_at"`
		OAuth       struct {
			Credentials struct {
				AccessToken string `json:"access_token"`
			} `json:"credentials"`
		} `json:"oauth"`
	} `json:"settings"`
}
