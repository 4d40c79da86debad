// Package system aggregates the alarm panels of one Vivint location and
// routes push messages between them.
package system

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
	"github.com/daemonp/vivint2mqtt/internal/panel"
)

// Raw attribute keys of a system payload.
const (
	AttrSystem     = "system"
	AttrPartitions = "par"
	AttrPanelID    = "panid"
)

// Push message types.
const (
	MsgAccountSystem    = "account_system"
	MsgAccountPartition = "account_partition"
	MsgPartitionID      = "parid"
)

// API is the part of the cloud client a system uses.
type API interface {
	panel.API
	GetSystemData(ctx context.Context, panelID int) (map[string]any, error)
}

type Options struct {
	Name            string
	IsAdmin         bool
	ValidityTimeout time.Duration
}

// System is one location on the account. Its data is the inner "system"
// object of the backend's system payload.
type System struct {
	*entity.Entity

	api             API
	env             devices.Env
	log             *log.Logger
	name            string
	isAdmin         bool
	validityTimeout time.Duration

	mu     sync.RWMutex
	panels []*panel.Panel
}

// New builds a system from a GetSystemData response.
func New(data map[string]any, api API, env devices.Env, opts Options) *System {
	inner, _ := entity.AsMap(data[AttrSystem])
	s := &System{
		Entity:          entity.New(inner),
		api:             api,
		env:             env,
		name:            opts.Name,
		isAdmin:         opts.IsAdmin,
		validityTimeout: opts.ValidityTimeout,
	}
	s.SetSource(s)
	s.SetDispatcher(env.Dispatcher)
	s.SetLogger(env.Log)
	s.log = log.OrNop(env.Log).With("system", s.ID())

	for _, pd := range entity.AsList(inner[AttrPartitions]) {
		s.panels = append(s.panels, s.newPanel(pd))
	}
	return s
}

func (s *System) newPanel(data map[string]any) *panel.Panel {
	return panel.New(data, s.api, s.env, panel.Options{
		SystemName:      s.Name,
		ValidityTimeout: s.validityTimeout,
	})
}

func (s *System) ID() int {
	return s.Int(AttrPanelID)
}

func (s *System) Name() string {
	return s.name
}

// IsAdmin reports whether the user administers this system.
func (s *System) IsAdmin() bool {
	return s.isAdmin
}

func (s *System) Panels() []*panel.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*panel.Panel(nil), s.panels...)
}

// Panel returns the panel with the given panel and partition ids.
func (s *System) Panel(panelID, partitionID int) (*panel.Panel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPanel(panelID, partitionID)
}

func (s *System) findPanel(panelID, partitionID int) (*panel.Panel, bool) {
	for _, p := range s.panels {
		if p.ID() == panelID && p.PartitionID() == partitionID {
			return p, true
		}
	}
	return nil, false
}

// Refresh fetches the system's bulk data and reconciles its panels. Known
// partitions are refreshed in place, new ones are added.
func (s *System) Refresh(ctx context.Context) error {
	data, err := s.api.GetSystemData(ctx, s.ID())
	if err != nil {
		return fmt.Errorf("refresh system %d: %w", s.ID(), err)
	}
	inner, _ := entity.AsMap(data[AttrSystem])

	for _, pd := range entity.AsList(inner[AttrPartitions]) {
		panelID, _ := entity.AsInt(pd[panel.AttrPanelID])
		partitionID, _ := entity.AsInt(pd[panel.AttrPartitionID])

		s.mu.Lock()
		p, ok := s.findPanel(panelID, partitionID)
		if !ok {
			s.panels = append(s.panels, s.newPanel(pd))
			s.log.Info("added panel %d partition %d", panelID, partitionID)
		}
		s.mu.Unlock()

		if ok {
			p.Refresh(pd, false)
		}
	}
	return nil
}

// HandlePushMessage applies a push message addressed to this system.
// Messages that match nothing are logged and dropped.
func (s *System) HandlePushMessage(ctx context.Context, msg map[string]any) {
	msgType := entity.AsString(msg[panel.MsgType])
	switch msgType {
	case MsgAccountSystem:
		data, _ := entity.AsMap(msg[panel.MsgData])
		if len(data) == 0 || entity.AsString(msg[panel.MsgOperation]) != string(panel.OpUpdate) {
			s.log.Debug("ignoring system message: %v", msg)
			metrics.RecordPush(msgType, metrics.OutcomeDropped)
			return
		}
		s.Update(maps.Clone(data), false)
		metrics.RecordPush(msgType, metrics.OutcomeRouted)

	case MsgAccountPartition:
		partitionID, ok := entity.AsInt(msg[MsgPartitionID])
		if !ok || partitionID == 0 {
			s.log.Debug("ignoring account partition message (no partition id specified): %v", msg)
			metrics.RecordPush(msgType, metrics.OutcomeDropped)
			return
		}
		p, found := s.Panel(s.ID(), partitionID)
		if !found {
			s.log.Debug("no alarm panel found for partition %d", partitionID)
			metrics.RecordPush(msgType, metrics.OutcomeDropped)
			return
		}
		p.HandlePushMessage(ctx, msg)

	default:
		s.log.Debug("ignoring message of type %q", msgType)
		metrics.RecordPush("other", metrics.OutcomeDropped)
	}
}

// Wait blocks until background work on every panel has finished.
func (s *System) Wait() {
	for _, p := range s.Panels() {
		p.Wait()
	}
}
