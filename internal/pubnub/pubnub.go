// Package pubnub receives Vivint push messages through the PubNub SDK.
package pubnub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/thejerf/suture/v4"

	"github.com/daemonp/vivint2mqtt/internal/account"
	"github.com/daemonp/vivint2mqtt/internal/log"
)

const (
	DefaultOrigin = "ps.pndsn.com"
	SubscribeKey  = "sub-c-6fb03d68-6a78-11e2-ae8f-12313f022c90"

	// heartbeat is the presence timeout, in seconds, announced to PubNub.
	heartbeat = 300
)

// ErrSubscriptionLost is returned by the subscribe loop when PubNub gives up
// on the subscription. The supervisor then subscribes again.
var ErrSubscriptionLost = errors.New("pubnub: subscription lost")

var _ account.Transport = (*Transport)(nil)

type Config struct {
	// Origin is the PubNub host, without a scheme.
	Origin       string
	SubscribeKey string
	// Backoff is how long the supervisor waits after repeated failures.
	Backoff time.Duration
	Log     *log.Logger
}

// client is the part of the PubNub SDK the transport drives.
type client interface {
	AddListener(l *pubnub.Listener)
	RemoveListener(l *pubnub.Listener)
	Subscribe(channel string)
	Unsubscribe(channel string)
	Destroy()
}

type sdkClient struct {
	pn *pubnub.PubNub
}

func (c sdkClient) AddListener(l *pubnub.Listener)    { c.pn.AddListener(l) }
func (c sdkClient) RemoveListener(l *pubnub.Listener) { c.pn.RemoveListener(l) }
func (c sdkClient) Destroy()                          { c.pn.Destroy() }

func (c sdkClient) Subscribe(channel string) {
	c.pn.Subscribe().Channels([]string{channel}).WithPresence(true).Execute()
}

// Unsubscribe also tells PubNub the user left the channel.
func (c sdkClient) Unsubscribe(channel string) {
	c.pn.Unsubscribe().Channels([]string{channel}).Execute()
}

// Transport opens PubNub subscriptions. It implements account.Transport.
type Transport struct {
	cfg       Config
	log       *log.Logger
	newClient func(userID string) client
}

func New(cfg Config) *Transport {
	if cfg.Origin == "" {
		cfg.Origin = DefaultOrigin
	}
	cfg.Origin = strings.TrimSuffix(strings.TrimPrefix(cfg.Origin, "https://"), "/")
	if cfg.SubscribeKey == "" {
		cfg.SubscribeKey = SubscribeKey
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 15 * time.Second
	}
	t := &Transport{cfg: cfg, log: log.OrNop(cfg.Log).With("component", "pubnub")}
	t.newClient = t.sdk
	return t
}

func (t *Transport) sdk(userID string) client {
	config := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	config.SubscribeKey = t.cfg.SubscribeKey
	config.Origin = t.cfg.Origin
	config.Secure = true
	config.PresenceTimeout = heartbeat
	config.PNReconnectionPolicy = pubnub.PNExponentialPolicy
	return sdkClient{pn: pubnub.NewPubNub(config)}
}

// Subscribe starts a supervised subscription to channel and its presence
// channel. Messages are passed to handler one at a time.
func (t *Transport) Subscribe(ctx context.Context, channel, userID string, handler account.Handler) (account.Subscription, error) {
	if channel == "" || userID == "" {
		return nil, errors.New("pubnub: channel and user id are required")
	}
	sub := &subscriber{
		pn:      t.newClient(userID),
		log:     t.log,
		channel: channel,
		handler: handler,
	}

	sup := suture.New("pubnub", suture.Spec{
		EventHook: func(e suture.Event) {
			t.log.Warn("supervisor: %s", e)
		},
		FailureBackoff: t.cfg.Backoff,
	})
	sup.Add(sub)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Subscription{
		sub:    sub,
		cancel: cancel,
		done:   sup.ServeBackground(runCtx),
	}
	t.log.Info("subscribed to %s as %s", channel, userID)
	return s, nil
}

// Subscription is a running subscription.
type Subscription struct {
	sub    *subscriber
	cancel context.CancelFunc
	done   <-chan error
	once   sync.Once
}

// Close stops the subscription and tells PubNub the user left. It waits for
// the message being handled, if any, unless ctx ends first.
func (s *Subscription) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.cancel()
		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		s.sub.pn.Unsubscribe(s.sub.channel)
		s.sub.pn.Destroy()
	})
	return err
}

// subscriber is the supervised listener loop. The SDK keeps the timetoken
// across restarts so nothing is replayed.
type subscriber struct {
	pn      client
	log     *log.Logger
	channel string
	handler account.Handler
}

func (s *subscriber) String() string {
	return "pubnub-subscriber"
}

func (s *subscriber) Serve(ctx context.Context) error {
	l := pubnub.NewListener()
	s.pn.AddListener(l)
	defer s.pn.RemoveListener(l)
	s.pn.Subscribe(s.channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-l.Status:
			if err := s.status(st); err != nil {
				s.pn.Unsubscribe(s.channel)
				return err
			}
		case m := <-l.Message:
			s.message(m)
		case p := <-l.Presence:
			if p != nil {
				s.log.Debug("received presence: %s %s", p.Event, p.UUID)
			}
		}
	}
}

func (s *subscriber) status(st *pubnub.PNStatus) error {
	if st == nil {
		return nil
	}
	switch st.Category {
	case pubnub.PNConnectedCategory:
		s.log.Debug("connected to %s", s.channel)
	case pubnub.PNReconnectedCategory:
		s.log.Info("reconnected to %s", s.channel)
	case pubnub.PNAccessDeniedCategory, pubnub.PNBadRequestCategory, pubnub.PNReconnectionAttemptsExhausted:
		s.log.Error("subscription to %s failed: %v", s.channel, st.ErrorData)
		return ErrSubscriptionLost
	default:
		if st.Error {
			s.log.Warn("subscription status %v: %v", st.Category, st.ErrorData)
		}
	}
	return nil
}

func (s *subscriber) message(m *pubnub.PNMessage) {
	if m == nil {
		return
	}
	msg, ok := m.Message.(map[string]interface{})
	if !ok {
		s.log.Debug("ignoring non-object message on %s: %v", m.Channel, m.Message)
		return
	}
	s.handler(msg)
}
