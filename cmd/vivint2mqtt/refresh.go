package main

import (
	"context"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/cache"
	"github.com/daemonp/vivint2mqtt/internal/log"
)

type refreshable interface {
	Refresh(ctx context.Context, snapshot map[string]any) error
	RefreshToken() string
}

type syncer interface {
	Sync()
}

// refresher periodically re-reads the account so state missed by the push
// channel converges, mirrors any new partitions, and keeps the cached
// session token current.
type refresher struct {
	account  refreshable
	bridge   syncer
	store    *cache.Store
	username string
	interval time.Duration
	log      *log.Logger

	lastToken string
}

func (r *refresher) String() string {
	return "refresher"
}

func (r *refresher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *refresher) refresh(ctx context.Context) {
	if err := r.account.Refresh(ctx, nil); err != nil {
		r.log.Warn("Refresh incomplete: %v", err)
	}
	r.bridge.Sync()

	token := r.account.RefreshToken()
	if token != "" && token != r.lastToken {
		saveSession(r.store, r.username, token, r.log)
		r.lastToken = token
	}
}
