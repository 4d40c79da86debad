package skyapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/daemonp/vivint2mqtt/internal/types"
)

// GetAuthUserData returns the user snapshot listing the systems the user
// can access.
func (c *Client) GetAuthUserData(ctx context.Context) (map[string]any, error) {
	data, err := c.get(ctx, "authuser", "authuser", nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &APIError{Op: "authuser", Message: "missing auth user data", Err: ErrAuthentication}
	}
	return data, nil
}

func (c *Client) GetPanelCredentials(ctx context.Context, panelID int) (types.PanelCredentials, error) {
	data, err := c.get(ctx, "panel credentials", fmt.Sprintf("panel-login/%d", panelID), nil)
	if err != nil {
		return types.PanelCredentials{}, err
	}
	if len(data) == 0 {
		return types.PanelCredentials{}, &APIError{Op: "panel credentials", Message: "unable to retrieve panel credentials", Err: ErrAuthentication}
	}
	name, _ := data["n"].(string)
	password, _ := data["pswd"].(string)
	return types.PanelCredentials{Name: name, Password: password}, nil
}

func (c *Client) GetSystemData(ctx context.Context, panelID int) (map[string]any, error) {
	data, err := c.get(ctx, "system data", fmt.Sprintf("systems/%d", panelID), url.Values{"includerules": {"false"}})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &APIError{Op: "system data", Message: "unable to retrieve system data", Err: ErrRequestFailed}
	}
	return data, nil
}

func (c *Client) GetSystemUpdate(ctx context.Context, panelID int) (map[string]any, error) {
	data, err := c.get(ctx, "system update", fmt.Sprintf("systems/%d/system-update", panelID), nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &APIError{Op: "system update", Message: "unable to retrieve system update", Err: ErrRequestFailed}
	}
	return data, nil
}

func (c *Client) UpdatePanelSoftware(ctx context.Context, panelID int) error {
	_, err := c.post(ctx, "update panel software", fmt.Sprintf("systems/%d/system-update", panelID), nil)
	return err
}

func (c *Client) RebootPanel(ctx context.Context, panelID int) error {
	_, err := c.post(ctx, "reboot panel", fmt.Sprintf("systems/%d/reboot-panel", panelID), nil)
	return err
}

func (c *Client) GetDeviceData(ctx context.Context, panelID, deviceID int) (map[string]any, error) {
	data, err := c.get(ctx, "device data", fmt.Sprintf("system/%d/device/%d", panelID, deviceID), nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &APIError{Op: "device data", Message: "unable to retrieve device data", Err: ErrRequestFailed}
	}
	return data, nil
}

func (c *Client) SetAlarmState(ctx context.Context, panelID, partitionID int, state types.ArmedState) error {
	_, err := c.put(ctx, "set alarm state", fmt.Sprintf("%d/%d/armedstates", panelID, partitionID), map[string]any{
		"system":      panelID,
		"partitionId": partitionID,
		"armState":    int(state),
		"forceArm":    false,
	})
	if err != nil {
		c.log.Error("failed to set state to %s for panel %d", state, panelID)
	}
	return err
}

func (c *Client) TriggerAlarm(ctx context.Context, panelID, partitionID int) error {
	_, err := c.post(ctx, "trigger alarm", fmt.Sprintf("%d/%d/alarm", panelID, partitionID), nil)
	if err != nil {
		c.log.Error("failed to trigger alarm for panel %d", panelID)
	}
	return err
}

func (c *Client) SetGarageDoorState(ctx context.Context, panelID, partitionID, deviceID int, state types.GarageDoorState) error {
	_, err := c.put(ctx, "set garage door state", fmt.Sprintf("%d/%d/door/%d", panelID, partitionID, deviceID), map[string]any{
		"s":   int(state),
		"_id": deviceID,
	})
	return err
}

func (c *Client) SetLockState(ctx context.Context, panelID, partitionID, deviceID int, locked bool) error {
	_, err := c.put(ctx, "set lock state", fmt.Sprintf("%d/%d/locks/%d", panelID, partitionID, deviceID), map[string]any{
		"s":   locked,
		"_id": deviceID,
	})
	return err
}

func (c *Client) SetSensorBypass(ctx context.Context, panelID, partitionID, deviceID int, bypass bool) error {
	state := types.ZoneUnbypassed
	if bypass {
		state = types.ZoneManuallyBypassed
	}
	_, err := c.put(ctx, "set sensor bypass", fmt.Sprintf("%d/%d/sensors/%d", panelID, partitionID, deviceID), map[string]any{
		"b":   int(state),
		"_id": deviceID,
	})
	return err
}

// SetSwitchState sets a switch on or off, or to a level. A level takes
// precedence when both are given.
func (c *Client) SetSwitchState(ctx context.Context, panelID, partitionID, deviceID int, on *bool, level *int) error {
	if on == nil && level == nil {
		return &APIError{Op: "set switch state", Message: `either "on" or "level" must be provided`, Err: ErrInvalidArgument}
	}
	if level != nil && (*level < 0 || *level > 100) {
		return &APIError{Op: "set switch state", Message: `"level" must be between 0 and 100`, Err: ErrInvalidArgument}
	}
	body := map[string]any{"_id": deviceID}
	if level == nil {
		body["s"] = *on
	} else {
		body["val"] = *level
	}
	_, err := c.put(ctx, "set switch state", fmt.Sprintf("%d/%d/switches/%d", panelID, partitionID, deviceID), body)
	return err
}

func (c *Client) SetThermostatState(ctx context.Context, panelID, partitionID, deviceID int, opts map[string]any) error {
	_, err := c.put(ctx, "set thermostat state", fmt.Sprintf("%d/%d/thermostats/%d", panelID, partitionID, deviceID), opts)
	return err
}

// RequestCameraThumbnail asks the camera for a new thumbnail. Failures are
// logged and not returned; the camera reports the result by push message.
func (c *Client) RequestCameraThumbnail(ctx context.Context, panelID, partitionID, deviceID int) error {
	path := fmt.Sprintf("%d/%d/%d/request-camera-thumbnail", panelID, partitionID, deviceID)
	if _, err := c.get(ctx, "request camera thumbnail", path, nil); err != nil {
		c.log.Error("failed to request thumbnail for camera %d @ %d:%d: %v", deviceID, panelID, partitionID, err)
	}
	return nil
}

// GetCameraThumbnailURL returns the redirect target for the thumbnail taken
// at ts, in epoch milliseconds.
func (c *Client) GetCameraThumbnailURL(ctx context.Context, panelID, partitionID, deviceID int, ts int64) (string, error) {
	target := c.apiURL(fmt.Sprintf("%d/%d/%d/camera-thumbnail", panelID, partitionID, deviceID),
		url.Values{"time": {strconv.FormatInt(ts, 10)}})
	data, err := c.call(ctx, "camera thumbnail", "GET", target, nil, true)
	if err != nil {
		return "", err
	}
	location, _ := data["location"].(string)
	return location, nil
}

func (c *Client) SetCameraPrivacyMode(ctx context.Context, panelID, deviceID int, on bool) error {
	ch, session, err := c.side("set camera privacy mode")
	if err != nil {
		return err
	}
	return wrapSide("set camera privacy mode", ch.SetCameraPrivacyMode(ctx, session, panelID, deviceID, on))
}

func (c *Client) SetCameraDeterMode(ctx context.Context, panelID, deviceID int, on bool) error {
	ch, session, err := c.side("set camera deter mode")
	if err != nil {
		return err
	}
	return wrapSide("set camera deter mode", ch.SetCameraDeterMode(ctx, session, panelID, deviceID, on))
}

func (c *Client) SetCameraAsDoorbellChimeExtender(ctx context.Context, panelID, deviceID int, on bool) error {
	ch, session, err := c.side("set camera chime extender")
	if err != nil {
		return err
	}
	return wrapSide("set camera chime extender", ch.SetCameraAsDoorbellChimeExtender(ctx, session, panelID, deviceID, on))
}

func (c *Client) RebootCamera(ctx context.Context, panelID, deviceID int, deviceType string) error {
	ch, session, err := c.side("reboot camera")
	if err != nil {
		return err
	}
	return wrapSide("reboot camera", ch.RebootCamera(ctx, session, panelID, deviceID, deviceType))
}
