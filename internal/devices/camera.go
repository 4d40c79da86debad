package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/entity"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Camera attribute keys.
const (
	AttrCameraDirectAvailable  = "cda"
	AttrCameraDirectPath       = "cdp"
	AttrCameraDirectPathStd    = "cdps"
	AttrCameraExtendChime      = "cex"
	AttrCameraIPAddress        = "caip"
	AttrCameraIPPort           = "cap"
	AttrCameraMAC              = "cmac"
	AttrCameraPrivacy          = "cpri"
	AttrCameraThumbnailDate    = "ctd"
	AttrCaptureClipOnMotion    = "ccom"
	AttrDeterOnDuty            = "deter_on_duty"
	AttrDingDong               = "dng"
	AttrPassword               = "pswd"
	AttrCameraSoftwareVersion  = "sv"
	AttrUsername               = "un"
	AttrVisitorDetected        = "vdt"
	AttrWirelessSignalStrength = "wiss"
)

// Events emitted by cameras in response to push messages.
const (
	EventDoorbellDing   = "doorbell_ding"
	EventMotionDetected = "motion_detected"
	EventThumbnailReady = "thumbnail_ready"
	EventVideoReady     = "video_ready"
)

// Ping cameras keep a VPN tunnel to the panel, so direct access rarely works.
var skipDirect = map[string]bool{
	"alpha_cs6022_camera_device": true,
}

var ErrNoThumbnail = errors.New("devices: camera has no thumbnail date")

type Camera struct {
	*Base
}

func (c *Camera) actualType() []string {
	return strings.Split(c.String(AttrActualType), "_")
}

// Manufacturer is the first segment of the actual type, title cased.
func (c *Camera) Manufacturer() string {
	parts := c.actualType()
	if parts[0] == "" {
		return ""
	}
	return cases.Title(language.English).String(parts[0])
}

// Model is the second segment of the actual type, upper cased.
func (c *Camera) Model() string {
	parts := c.actualType()
	if len(parts) < 2 {
		return ""
	}
	return strings.ToUpper(parts[1])
}

// SerialNumber is the camera's MAC address.
func (c *Camera) SerialNumber() string {
	return c.MACAddress()
}

func (c *Camera) SoftwareVersion() string {
	return c.String(AttrCameraSoftwareVersion)
}

func (c *Camera) CaptureClipOnMotion() bool {
	return c.Bool(AttrCaptureClipOnMotion)
}

func (c *Camera) IPAddress() string {
	return c.String(AttrCameraIPAddress)
}

func (c *Camera) MACAddress() string {
	return c.String(AttrCameraMAC)
}

func (c *Camera) IsInPrivacyMode() bool {
	return c.Bool(AttrCameraPrivacy)
}

func (c *Camera) IsOnline() bool {
	return c.Bool(AttrOnline)
}

func (c *Camera) ExtendsChime() bool {
	return c.Bool(AttrCameraExtendChime)
}

func (c *Camera) WirelessSignalStrength() int {
	return c.Int(AttrWirelessSignalStrength)
}

// HandlePushMessage merges msg and then emits a camera event when the
// message shape identifies one.
func (c *Camera) HandlePushMessage(msg map[string]any) {
	c.Base.HandlePushMessage(msg)

	var event string
	switch {
	case truthy(msg[AttrCameraThumbnailDate]):
		event = EventThumbnailReady
	case truthy(msg[AttrDingDong]):
		event = EventDoorbellDing
	case hasExactKeys(msg, AttrID, AttrType):
		event = EventVideoReady
	case truthy(msg[AttrVisitorDetected]),
		hasExactKeys(msg, AttrID, AttrActualType, AttrState),
		hasExactKeys(msg, AttrID, AttrDeterOnDuty, AttrType):
		event = EventMotionDetected
	}

	if event != "" {
		c.emit(event, map[string]any{"message": msg})
	}
	c.log.Debug("message received by %s: %v", c.Name(), msg)
}

func (c *Camera) RequestThumbnail(ctx context.Context) error {
	err := c.commands().RequestCameraThumbnail(ctx, c.owner.PanelID, c.owner.PartitionID, c.ID())
	return c.wrap("request thumbnail", err)
}

// ThumbnailURL returns the URL of the latest thumbnail.
func (c *Camera) ThumbnailURL(ctx context.Context) (string, error) {
	ts, err := c.thumbnailTimestamp()
	if err != nil {
		return "", err
	}
	url, err := c.commands().GetCameraThumbnailURL(ctx, c.owner.PanelID, c.owner.PartitionID, c.ID(), ts)
	return url, c.wrap("get thumbnail url", err)
}

// thumbnailTimestamp converts the thumbnail date to epoch milliseconds. The
// date sometimes carries a trailing Z and is always UTC.
func (c *Camera) thumbnailTimestamp() (int64, error) {
	raw := strings.TrimSuffix(c.String(AttrCameraThumbnailDate), "Z")
	if raw == "" {
		return 0, ErrNoThumbnail
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", raw)
	if err != nil {
		return 0, fmt.Errorf("parse thumbnail date %q: %w", raw, err)
	}
	return t.UnixMilli(), nil
}

// RTSPURL returns the panel relayed stream URL with the panel credentials
// embedded. internal selects the LAN address, hd the full resolution stream.
func (c *Camera) RTSPURL(ctx context.Context, internal, hd bool) (string, error) {
	key := "ceu"
	if internal {
		key = "ciu"
	}
	if !hd {
		key += "s"
	}
	urls, _ := c.Get(key)
	list, _ := urls.([]any)
	if len(list) == 0 {
		return "", fmt.Errorf("camera %d has no %s stream url", c.ID(), key)
	}
	url, _ := list[0].(string)
	if !strings.HasPrefix(url, "rtsp://") {
		return "", fmt.Errorf("camera %d has unexpected stream url %q", c.ID(), url)
	}
	if c.owner.Credentials == nil {
		panic(fmt.Sprintf("devices: camera %d has no credential source", c.ID()))
	}
	creds, err := c.owner.Credentials(ctx)
	if err != nil {
		return "", c.wrap("get panel credentials", err)
	}
	return fmt.Sprintf("rtsp://%s:%s@%s", creds.Name, creds.Password, url[len("rtsp://"):]), nil
}

// DirectRTSPURL returns the URL for streaming straight from the camera, if
// the camera supports it.
func (c *Camera) DirectRTSPURL(hd bool) (string, bool) {
	if !c.Bool(AttrCameraDirectAvailable) || skipDirect[c.String(AttrActualType)] {
		return "", false
	}
	path := c.String(AttrCameraDirectPathStd)
	if hd {
		path = c.String(AttrCameraDirectPath)
	}
	return fmt.Sprintf("rtsp://%s:%s@%s:%s/%s",
		c.String(AttrUsername), c.String(AttrPassword), c.IPAddress(), c.String(AttrCameraIPPort), path), true
}

func (c *Camera) SetPrivacyMode(ctx context.Context, on bool) error {
	return c.wrap("set privacy mode", c.commands().SetCameraPrivacyMode(ctx, c.owner.PanelID, c.ID(), on))
}

func (c *Camera) SetDeterMode(ctx context.Context, on bool) error {
	return c.wrap("set deter mode", c.commands().SetCameraDeterMode(ctx, c.owner.PanelID, c.ID(), on))
}

func (c *Camera) SetAsDoorbellChimeExtender(ctx context.Context, on bool) error {
	err := c.commands().SetCameraAsDoorbellChimeExtender(ctx, c.owner.PanelID, c.ID(), on)
	return c.wrap("set chime extender", err)
}

func (c *Camera) Reboot(ctx context.Context) error {
	return c.wrap("reboot camera", c.commands().RebootCamera(ctx, c.owner.PanelID, c.ID(), c.RawType()))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	if f, ok := entity.AsFloat(v); ok {
		return f != 0
	}
	return true
}

func hasExactKeys(m map[string]any, keys ...string) bool {
	if len(m) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
