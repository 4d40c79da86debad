package devices

import (
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

// Bypassable is the bypass and tamper reporting shared by sensors and locks.
type Bypassable struct {
	e *entity.Entity
}

// BypassState returns the bypass state, treating a missing value as unbypassed.
func (c Bypassable) BypassState() types.ZoneBypass {
	n, ok := c.e.IntOK(AttrBypassed)
	if !ok {
		return types.ZoneUnbypassed
	}
	return types.ZoneBypass(n)
}

func (c Bypassable) IsBypassed() bool {
	return c.BypassState() != types.ZoneUnbypassed
}

func (c Bypassable) IsTampered() bool {
	return c.e.Bool(AttrTamper)
}
