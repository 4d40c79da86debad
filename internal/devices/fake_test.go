package devices

import (
	"context"
	"fmt"

	"github.com/daemonp/vivint2mqtt/internal/fakesky"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

type call = fakesky.Call

func last(api *fakesky.API) call {
	if len(api.Calls) == 0 {
		return call{}
	}
	return api.Calls[len(api.Calls)-1]
}

func testOwner(cmd Commander) Owner {
	return Owner{
		PanelID:     100,
		PartitionID: 1,
		Commands:    cmd,
		Credentials: func(context.Context) (types.PanelCredentials, error) {
			return types.PanelCredentials{Name: "user", Password: "secret"}, nil
		},
	}
}

func errOwner(err error) Owner {
	o := testOwner(&fakesky.API{Err: err})
	o.Credentials = func(context.Context) (types.PanelCredentials, error) {
		return types.PanelCredentials{}, fmt.Errorf("creds: %w", err)
	}
	return o
}
