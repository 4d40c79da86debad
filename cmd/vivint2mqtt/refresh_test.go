package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/vivint2mqtt/internal/cache"
	"github.com/daemonp/vivint2mqtt/internal/log"
)

type fakeAccount struct {
	refreshes atomic.Int32
	token     atomic.Value
	err       error
}

func (a *fakeAccount) Refresh(ctx context.Context, snapshot map[string]any) error {
	a.refreshes.Add(1)
	return a.err
}

func (a *fakeAccount) RefreshToken() string {
	s, _ := a.token.Load().(string)
	return s
}

type fakeSyncer struct {
	syncs atomic.Int32
}

func (s *fakeSyncer) Sync() { s.syncs.Add(1) }

func TestRefreshSyncsAndPersistsToken(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	acct := &fakeAccount{err: errors.New("system 7 unavailable")}
	acct.token.Store("tok-1")
	bridge := &fakeSyncer{}
	r := &refresher{account: acct, bridge: bridge, store: store, username: "user", log: log.Nop()}

	r.refresh(context.Background())

	assert.EqualValues(t, 1, acct.refreshes.Load())
	assert.EqualValues(t, 1, bridge.syncs.Load())
	session, err := store.LoadCache("user")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "tok-1", session.RefreshToken)

	// Unchanged tokens are not rewritten.
	require.NoError(t, store.DeleteCache())
	r.refresh(context.Background())
	session, err = store.LoadCache("user")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRefresherServesUntilCancelled(t *testing.T) {
	acct := &fakeAccount{}
	bridge := &fakeSyncer{}
	r := &refresher{account: acct, bridge: bridge, interval: 5 * time.Millisecond, log: log.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	assert.Eventually(t, func() bool { return bridge.syncs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
	assert.Equal(t, "refresher", r.String())
}
