// Package fakesky provides an in-memory stand-in for the cloud API client,
// for use in tests of the packages that drive it.
package fakesky

import (
	"context"
	"errors"
	"sync"

	"github.com/daemonp/vivint2mqtt/internal/types"
)

var ErrNotFound = errors.New("fakesky: not found")

// Call records one invocation.
type Call struct {
	Method string
	Args   []any
}

// API records calls and serves canned responses. Zero value is usable.
type API struct {
	mu sync.Mutex

	Calls []Call

	// AuthUser is returned by Connect and GetAuthUserData.
	AuthUser map[string]any
	// Systems maps a panel id to its GetSystemData response.
	Systems map[int]map[string]any
	// Devices maps a device id to its GetDeviceData response.
	Devices     map[int]map[string]any
	Credentials types.PanelCredentials
	Token       string

	// Err, when set, fails every call. ErrFor fails calls by method name.
	Err    error
	ErrFor map[string]error

	// DeviceDataGate, when set, blocks GetDeviceData until it is closed.
	DeviceDataGate chan struct{}
}

func (a *API) record(method string, args ...any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, Call{Method: method, Args: args})
	if err, ok := a.ErrFor[method]; ok {
		return err
	}
	return a.Err
}

// CallsTo returns the recorded calls to method.
func (a *API) CallsTo(method string) []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Call
	for _, c := range a.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// SetSystem replaces the canned system data for id.
func (a *API) SetSystem(id int, data map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Systems == nil {
		a.Systems = make(map[int]map[string]any)
	}
	a.Systems[id] = data
}

func (a *API) SetDevice(id int, data map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Devices == nil {
		a.Devices = make(map[int]map[string]any)
	}
	a.Devices[id] = data
}

func (a *API) Connect(ctx context.Context) (map[string]any, error) {
	if err := a.record("Connect"); err != nil {
		return nil, err
	}
	return a.AuthUser, nil
}

func (a *API) Disconnect(ctx context.Context) error {
	return a.record("Disconnect")
}

func (a *API) VerifyMFA(ctx context.Context, code string) error {
	return a.record("VerifyMFA", code)
}

func (a *API) GetAuthUserData(ctx context.Context) (map[string]any, error) {
	if err := a.record("GetAuthUserData"); err != nil {
		return nil, err
	}
	return a.AuthUser, nil
}

func (a *API) RefreshToken() string {
	return a.Token
}

func (a *API) GetSystemData(ctx context.Context, panelID int) (map[string]any, error) {
	if err := a.record("GetSystemData", panelID); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.Systems[panelID]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (a *API) GetDeviceData(ctx context.Context, panelID, deviceID int) (map[string]any, error) {
	if a.DeviceDataGate != nil {
		select {
		case <-a.DeviceDataGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := a.record("GetDeviceData", panelID, deviceID); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.Devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (a *API) SetAlarmState(ctx context.Context, panelID, partitionID int, state types.ArmedState) error {
	return a.record("SetAlarmState", panelID, partitionID, state)
}

func (a *API) TriggerAlarm(ctx context.Context, panelID, partitionID int) error {
	return a.record("TriggerAlarm", panelID, partitionID)
}

func (a *API) RebootPanel(ctx context.Context, panelID int) error {
	return a.record("RebootPanel", panelID)
}

func (a *API) GetPanelCredentials(ctx context.Context, panelID int) (types.PanelCredentials, error) {
	if err := a.record("GetPanelCredentials", panelID); err != nil {
		return types.PanelCredentials{}, err
	}
	return a.Credentials, nil
}

func (a *API) GetSystemUpdate(ctx context.Context, panelID int) (map[string]any, error) {
	if err := a.record("GetSystemUpdate", panelID); err != nil {
		return nil, err
	}
	return map[string]any{"av": false}, nil
}

func (a *API) UpdatePanelSoftware(ctx context.Context, panelID int) error {
	return a.record("UpdatePanelSoftware", panelID)
}

func (a *API) SetLockState(ctx context.Context, panelID, partitionID, deviceID int, locked bool) error {
	return a.record("SetLockState", panelID, partitionID, deviceID, locked)
}

func (a *API) SetSwitchState(ctx context.Context, panelID, partitionID, deviceID int, on *bool, level *int) error {
	var onv, levelv any
	if on != nil {
		onv = *on
	}
	if level != nil {
		levelv = *level
	}
	return a.record("SetSwitchState", panelID, partitionID, deviceID, onv, levelv)
}

func (a *API) SetGarageDoorState(ctx context.Context, panelID, partitionID, deviceID int, state types.GarageDoorState) error {
	return a.record("SetGarageDoorState", panelID, partitionID, deviceID, state)
}

func (a *API) SetSensorBypass(ctx context.Context, panelID, partitionID, deviceID int, bypass bool) error {
	return a.record("SetSensorBypass", panelID, partitionID, deviceID, bypass)
}

func (a *API) SetThermostatState(ctx context.Context, panelID, partitionID, deviceID int, opts map[string]any) error {
	return a.record("SetThermostatState", panelID, partitionID, deviceID, opts)
}

func (a *API) RequestCameraThumbnail(ctx context.Context, panelID, partitionID, deviceID int) error {
	return a.record("RequestCameraThumbnail", panelID, partitionID, deviceID)
}

func (a *API) GetCameraThumbnailURL(ctx context.Context, panelID, partitionID, deviceID int, ts int64) (string, error) {
	if err := a.record("GetCameraThumbnailURL", panelID, partitionID, deviceID, ts); err != nil {
		return "", err
	}
	return "https://thumbnail.invalid/latest", nil
}

func (a *API) SetCameraPrivacyMode(ctx context.Context, panelID, deviceID int, on bool) error {
	return a.record("SetCameraPrivacyMode", panelID, deviceID, on)
}

func (a *API) SetCameraDeterMode(ctx context.Context, panelID, deviceID int, on bool) error {
	return a.record("SetCameraDeterMode", panelID, deviceID, on)
}

func (a *API) SetCameraAsDoorbellChimeExtender(ctx context.Context, panelID, deviceID int, on bool) error {
	return a.record("SetCameraAsDoorbellChimeExtender", panelID, deviceID, on)
}

func (a *API) RebootCamera(ctx context.Context, panelID, deviceID int, deviceType string) error {
	return a.record("RebootCamera", panelID, deviceID, deviceType)
}
