// Package account is the root of the object model: it owns the session, the
// systems reachable through it and the push subscription that keeps them
// current.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
	"github.com/daemonp/vivint2mqtt/internal/panel"
	"github.com/daemonp/vivint2mqtt/internal/skyapi"
	"github.com/daemonp/vivint2mqtt/internal/system"
)

// Auth user snapshot keys.
const (
	AttrUsers            = "u"
	AttrUserID           = "_id"
	AttrBroadcastChannel = "mbc"
	AttrSystems          = "system"
	AttrSystemName       = "sn"
	AttrAdmin            = "ad"
	AttrPanelID          = "panid"
)

// ChannelPrefix is prepended to the user's broadcast channel.
const ChannelPrefix = "PlatformChannel"

var (
	ErrNotConnected = errors.New("account: not connected")
	ErrNoMFAPending = errors.New("account: no multi-factor authentication pending")
	ErrNoChannel    = errors.New("account: user data has no broadcast channel")
)

// API is the session client the account drives.
type API interface {
	system.API
	Connect(ctx context.Context) (map[string]any, error)
	Disconnect(ctx context.Context) error
	VerifyMFA(ctx context.Context, code string) error
	GetAuthUserData(ctx context.Context) (map[string]any, error)
	RefreshToken() string
}

// Handler receives push messages.
type Handler func(msg map[string]any)

// Subscription is a live push subscription.
type Subscription interface {
	Close(ctx context.Context) error
}

// Transport opens push subscriptions.
type Transport interface {
	Subscribe(ctx context.Context, channel, userID string, handler Handler) (Subscription, error)
}

type State int

const (
	StateDisconnected State = iota
	StateMFAPending
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateMFAPending:
		return "mfa_pending"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Options struct {
	// Transport is required only when subscribing for updates.
	Transport       Transport
	ValidityTimeout time.Duration
}

// ConnectOptions selects what Connect does after the session is up.
type ConnectOptions struct {
	LoadDevices bool
	Subscribe   bool
}

type Account struct {
	api       API
	env       devices.Env
	log       *log.Logger
	transport Transport
	timeout   time.Duration

	mu      sync.RWMutex
	state   State
	connect ConnectOptions
	systems []*system.System
	sub     Subscription
	// push bounds background work started by push messages. It is cancelled
	// on disconnect.
	push   context.Context
	cancel context.CancelFunc
}

func New(api API, env devices.Env, opts Options) *Account {
	return &Account{
		api:       api,
		env:       env,
		log:       log.OrNop(env.Log).With("component", "account"),
		transport: opts.Transport,
		timeout:   opts.ValidityTimeout,
	}
}

func (a *Account) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Account) Connected() bool {
	return a.State() == StateConnected
}

// RefreshToken returns the session's current refresh token, for persisting
// between runs.
func (a *Account) RefreshToken() string {
	return a.api.RefreshToken()
}

func (a *Account) Systems() []*system.System {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*system.System(nil), a.systems...)
}

// Panels flattens the partitions of every system.
func (a *Account) Panels() []*panel.Panel {
	var out []*panel.Panel
	for _, s := range a.Systems() {
		out = append(out, s.Panels()...)
	}
	return out
}

func (a *Account) System(id int) (*system.System, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.findSystem(id)
}

func (a *Account) findSystem(id int) (*system.System, bool) {
	for _, s := range a.systems {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Connect opens the session. If the backend asks for a second factor the
// account is left pending and the returned error matches
// skyapi.ErrMFARequired; VerifyMFA then completes the connection.
func (a *Account) Connect(ctx context.Context, opts ConnectOptions) error {
	a.log.Debug("connecting to Vivint Sky")

	a.mu.Lock()
	a.connect = opts
	a.mu.Unlock()

	authUser, err := a.api.Connect(ctx)
	if err != nil {
		if errors.Is(err, skyapi.ErrMFARequired) {
			a.setState(StateMFAPending)
		}
		return fmt.Errorf("connect: %w", err)
	}
	return a.connected(ctx, opts, authUser)
}

// VerifyMFA submits a second factor code for a pending connection and, on
// success, finishes what Connect was asked to do.
func (a *Account) VerifyMFA(ctx context.Context, code string) error {
	a.mu.RLock()
	state, opts := a.state, a.connect
	a.mu.RUnlock()
	if state != StateMFAPending {
		return ErrNoMFAPending
	}

	if err := a.api.VerifyMFA(ctx, code); err != nil {
		return fmt.Errorf("verify mfa: %w", err)
	}
	return a.connected(ctx, opts, nil)
}

func (a *Account) connected(ctx context.Context, opts ConnectOptions, authUser map[string]any) error {
	a.mu.Lock()
	a.state = StateConnected
	prev := a.cancel
	a.push, a.cancel = context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Unlock()
	if prev != nil {
		prev()
	}

	if opts.Subscribe {
		if err := a.Subscribe(ctx, authUser); err != nil {
			return err
		}
	}
	if opts.LoadDevices {
		a.log.Debug("loading devices")
		return a.Refresh(ctx, authUser)
	}
	return nil
}

func (a *Account) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Subscribe opens the push subscription for the user's broadcast channel.
// authUser may be nil, in which case it is fetched.
func (a *Account) Subscribe(ctx context.Context, authUser map[string]any) error {
	if !a.Connected() {
		return ErrNotConnected
	}
	if a.transport == nil {
		return errors.New("account: no push transport configured")
	}
	if authUser == nil {
		var err error
		if authUser, err = a.api.GetAuthUserData(ctx); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	user := users(authUser)
	mbc := entity.AsString(user[AttrBroadcastChannel])
	if mbc == "" {
		return ErrNoChannel
	}
	channel := ChannelPrefix + "#" + mbc
	userID := "pn-" + strings.ToUpper(entity.AsString(user[AttrUserID]))

	a.log.Debug("subscribing to %s for realtime updates", channel)
	sub, err := a.transport.Subscribe(ctx, channel, userID, a.deliver)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	a.mu.Lock()
	old := a.sub
	a.sub = sub
	a.mu.Unlock()
	if old != nil {
		_ = old.Close(ctx)
	}
	return nil
}

func (a *Account) deliver(msg map[string]any) {
	a.mu.RLock()
	ctx := a.push
	a.mu.RUnlock()
	if ctx == nil {
		return
	}
	a.HandlePushMessage(ctx, msg)
}

// users returns the user object of an auth user snapshot. Some API versions
// wrap it in a single element list.
func users(authUser map[string]any) map[string]any {
	if m, ok := entity.AsMap(authUser[AttrUsers]); ok {
		return m
	}
	if list := entity.AsList(authUser[AttrUsers]); len(list) > 0 {
		return list[0]
	}
	return nil
}

// Refresh reconciles the account's systems with an auth user snapshot,
// fetching one when snapshot is nil. A failed snapshot fetch is logged and
// leaves the current state untouched. Errors refreshing individual systems
// are returned together after every system has been tried.
func (a *Account) Refresh(ctx context.Context, snapshot map[string]any) error {
	if snapshot == nil {
		var err error
		snapshot, err = a.api.GetAuthUserData(ctx)
		if err != nil {
			a.log.Error("unable to refresh system(s): %v", err)
			return nil
		}
	}

	entries := entity.AsList(users(snapshot)[AttrSystems])
	var errs []error
	for _, entry := range entries {
		id, ok := entity.AsInt(entry[AttrPanelID])
		if !ok {
			a.log.Debug("skipping system without id: %v", entry)
			continue
		}
		if err := a.refreshSystem(ctx, id, entry); err != nil {
			errs = append(errs, err)
		}
	}
	a.log.Debug("refreshed %d system(s)", len(entries))
	return errors.Join(errs...)
}

func (a *Account) refreshSystem(ctx context.Context, id int, entry map[string]any) error {
	if s, ok := a.System(id); ok {
		return s.Refresh(ctx)
	}

	data, err := a.api.GetSystemData(ctx, id)
	if err != nil {
		return fmt.Errorf("load system %d: %w", id, err)
	}
	s := system.New(data, a.api, a.env, system.Options{
		Name:            entity.AsString(entry[AttrSystemName]),
		IsAdmin:         entity.AsBool(entry[AttrAdmin]),
		ValidityTimeout: a.timeout,
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.findSystem(id); dup {
		return nil
	}
	a.systems = append(a.systems, s)
	a.log.Info("loaded system %d (%s) with %d panel(s)", id, s.Name(), len(s.Panels()))
	return nil
}

// HandlePushMessage routes a push message to the system named by its panid.
// Messages arriving while disconnected, without a panel id or for an
// unknown system are logged and dropped.
func (a *Account) HandlePushMessage(ctx context.Context, msg map[string]any) {
	msgType := entity.AsString(msg["t"])
	if !a.Connected() {
		a.log.Debug("dropping message received while disconnected")
		metrics.RecordPush(msgType, metrics.OutcomeDropped)
		return
	}
	id, ok := entity.AsInt(msg[AttrPanelID])
	if !ok || id == 0 {
		a.log.Debug("push message ignored (no panel id specified): %v", msg)
		metrics.RecordPush(msgType, metrics.OutcomeDropped)
		return
	}
	s, found := a.System(id)
	if !found {
		a.log.Debug("no system found with id %d: %v", id, msg)
		metrics.RecordPush(msgType, metrics.OutcomeDropped)
		return
	}
	s.HandlePushMessage(ctx, msg)
}

// Disconnect stops accepting push messages, releases the subscription and
// closes the session. Handlers already running are not waited for.
func (a *Account) Disconnect(ctx context.Context) error {
	a.log.Debug("disconnecting from Vivint Sky")

	a.mu.Lock()
	a.state = StateDisconnected
	sub, cancel := a.sub, a.cancel
	a.sub, a.cancel, a.push = nil, nil, nil
	a.mu.Unlock()

	var errs []error
	if sub != nil {
		if err := sub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close subscription: %w", err))
		}
	}
	if cancel != nil {
		cancel()
	}
	if err := a.api.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	return errors.Join(errs...)
}

// Wait blocks until background work on every system has finished.
func (a *Account) Wait() {
	for _, s := range a.Systems() {
		s.Wait()
	}
}
