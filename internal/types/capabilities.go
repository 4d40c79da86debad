package types

// CapabilityCategoryType groups device capabilities.
type CapabilityCategoryType int

const (
	CapabilityCategoryUnknown         CapabilityCategoryType = 0
	CapabilityCategoryCamera          CapabilityCategoryType = 1
	CapabilityCategoryDoorbell        CapabilityCategoryType = 2
	CapabilityCategorySwitch          CapabilityCategoryType = 3
	CapabilityCategoryThermostat      CapabilityCategoryType = 4
	CapabilityCategoryZWave           CapabilityCategoryType = 5
	CapabilityCategoryTouchlink       CapabilityCategoryType = 6
	CapabilityCategoryDoorLock        CapabilityCategoryType = 7
	CapabilityCategoryMobileBlacklist CapabilityCategoryType = 8
	CapabilityCategoryGarageDoor      CapabilityCategoryType = 9
)

// ParseCapabilityCategory returns CapabilityCategoryUnknown for unrecognised values.
func ParseCapabilityCategory(v int) CapabilityCategoryType {
	if v < int(CapabilityCategoryUnknown) || v > int(CapabilityCategoryGarageDoor) {
		return CapabilityCategoryUnknown
	}
	return CapabilityCategoryType(v)
}

// CapabilityType is a single feature flag a device advertises.
type CapabilityType int

const (
	CapabilityUnknown                 CapabilityType = 0
	CapabilityMotionDetection         CapabilityType = 1
	CapabilityVisitorDetection        CapabilityType = 2
	CapabilityClipCapture             CapabilityType = 3
	CapabilityCanChime                CapabilityType = 4
	CapabilityTwoWayAudio             CapabilityType = 5
	CapabilityLiveVideo               CapabilityType = 6
	CapabilityBinaryOnOff             CapabilityType = 7
	CapabilityDimmable                CapabilityType = 8
	CapabilityHSBLighting             CapabilityType = 9
	CapabilityTemperatureDetection    CapabilityType = 10
	CapabilityMinimumTemperature      CapabilityType = 11
	CapabilityMaximumTemperature      CapabilityType = 12
	CapabilityMinSetpointDifferenceC  CapabilityType = 13
	CapabilityMinSetpointDifferenceF  CapabilityType = 14
	CapabilityPrivacyMode             CapabilityType = 15
	CapabilityPersonDetection         CapabilityType = 16
	CapabilityQuietMode               CapabilityType = 17
	CapabilityFan15Minute             CapabilityType = 18
	CapabilityFan30Minute             CapabilityType = 19
	CapabilityFan45Minute             CapabilityType = 20
	CapabilityFan60Minute             CapabilityType = 21
	CapabilityZWaveDiagnostics        CapabilityType = 22
	CapabilityFan120Minute            CapabilityType = 23
	CapabilityFan240Minute            CapabilityType = 24
	CapabilityFan480Minute            CapabilityType = 25
	CapabilityFan960Minute            CapabilityType = 26
	CapabilitySecurity20              CapabilityType = 27
	CapabilityWiFi                    CapabilityType = 28
	CapabilitySoftDipSwitch           CapabilityType = 29
	CapabilityCanLockUnlock           CapabilityType = 30
	CapabilityMobileBlacklistable     CapabilityType = 31
	CapabilityPinchToZoom             CapabilityType = 32
	CapabilityCannotReportStatus      CapabilityType = 33
	CapabilityRotateImage             CapabilityType = 34
	CapabilityStatusLightToggle       CapabilityType = 35
	CapabilityChimeExtender           CapabilityType = 36
	CapabilitySirenExtender           CapabilityType = 37
	CapabilityLurkerDetection         CapabilityType = 38
	CapabilityPackageDetection        CapabilityType = 39
	CapabilityPackageMoveDetection    CapabilityType = 40
	CapabilityVehicleDetection        CapabilityType = 41
	CapabilityAnimalDetection         CapabilityType = 42
	CapabilityWarped                  CapabilityType = 43
	CapabilityPolygonROI              CapabilityType = 44
	CapabilityDeter                   CapabilityType = 45
	CapabilityHasMicrophone           CapabilityType = 46
	CapabilityRectROI                 CapabilityType = 47
	CapabilityMaintainZoom            CapabilityType = 48
	CapabilityDeterZone               CapabilityType = 49
	CapabilityDeterSchedule           CapabilityType = 50
	CapabilityDeterTone               CapabilityType = 51
	CapabilityDeterLight              CapabilityType = 52
	CapabilityDeterLingerDuration     CapabilityType = 53
	CapabilityInHomeChimeVolume       CapabilityType = 54
	CapabilityMuteChime               CapabilityType = 55
	CapabilityDoorbellChimeSelectable CapabilityType = 56
	CapabilityVisitorChimeSelectable  CapabilityType = 57
	CapabilityPreviewChimeInHome      CapabilityType = 58
	CapabilityVideoQuality            CapabilityType = 59
	CapabilityNightVision             CapabilityType = 60
	CapabilityRestoreDefaults         CapabilityType = 61
	CapabilityRebootCamera            CapabilityType = 62
	CapabilityDeleteAllEvents         CapabilityType = 63
	CapabilityHumidity                CapabilityType = 64
	CapabilityHumidityControl         CapabilityType = 65
	CapabilityCanInitiateCall         CapabilityType = 66
	CapabilityMaxHeatLockSetPoint     CapabilityType = 67
	CapabilityMinHeatLockSetPoint     CapabilityType = 68
	CapabilityMaxCoolLockSetPoint     CapabilityType = 69
	CapabilityMinCoolLockSetPoint     CapabilityType = 70
	CapabilityDoorState               CapabilityType = 71
	CapabilityCameraDVRCapable        CapabilityType = 72
	CapabilityCanEnableDisableAudio   CapabilityType = 73
	CapabilityCanEnableDisableLED     CapabilityType = 74
	CapabilityHasUserCode             CapabilityType = 75
)

var capabilityNames = map[CapabilityType]string{
	CapabilityMotionDetection:         "motion_detection",
	CapabilityVisitorDetection:        "visitor_detection",
	CapabilityClipCapture:             "clip_capture",
	CapabilityCanChime:                "can_chime",
	CapabilityTwoWayAudio:             "two_way_audio",
	CapabilityLiveVideo:               "live_video",
	CapabilityBinaryOnOff:             "binary_on_off",
	CapabilityDimmable:                "dimmable",
	CapabilityHSBLighting:             "hsb_lighting",
	CapabilityTemperatureDetection:    "temperature_detection",
	CapabilityMinimumTemperature:      "minimum_temperature",
	CapabilityMaximumTemperature:      "maximum_temperature",
	CapabilityMinSetpointDifferenceC:  "min_setpoint_difference_c",
	CapabilityMinSetpointDifferenceF:  "min_setpoint_difference_f",
	CapabilityPrivacyMode:             "privacy_mode",
	CapabilityPersonDetection:         "person_detection",
	CapabilityQuietMode:               "quiet_mode",
	CapabilityFan15Minute:             "fan15_minute",
	CapabilityFan30Minute:             "fan30_minute",
	CapabilityFan45Minute:             "fan45_minute",
	CapabilityFan60Minute:             "fan60_minute",
	CapabilityZWaveDiagnostics:        "zwave_diagnostics",
	CapabilityFan120Minute:            "fan120_minute",
	CapabilityFan240Minute:            "fan240_minute",
	CapabilityFan480Minute:            "fan480_minute",
	CapabilityFan960Minute:            "fan960_minute",
	CapabilitySecurity20:              "security_2_0",
	CapabilityWiFi:                    "wi_fi",
	CapabilitySoftDipSwitch:           "soft_dip_switch",
	CapabilityCanLockUnlock:           "can_lock_unlock",
	CapabilityMobileBlacklistable:     "mobile_blacklistable",
	CapabilityPinchToZoom:             "pinch_to_zoom",
	CapabilityCannotReportStatus:      "cannot_report_status",
	CapabilityRotateImage:             "rotate_image",
	CapabilityStatusLightToggle:       "status_light_toggle",
	CapabilityChimeExtender:           "chime_extender",
	CapabilitySirenExtender:           "siren_extender",
	CapabilityLurkerDetection:         "lurker_detection",
	CapabilityPackageDetection:        "package_detection",
	CapabilityPackageMoveDetection:    "package_move_detection",
	CapabilityVehicleDetection:        "vehicle_detection",
	CapabilityAnimalDetection:         "animal_detection",
	CapabilityWarped:                  "warped",
	CapabilityPolygonROI:              "polygon_roi",
	CapabilityDeter:                   "deter",
	CapabilityHasMicrophone:           "has_microphone",
	CapabilityRectROI:                 "rect_roi",
	CapabilityMaintainZoom:            "maintain_zoom",
	CapabilityDeterZone:               "deter_zone",
	CapabilityDeterSchedule:           "deter_schedule",
	CapabilityDeterTone:               "deter_tone",
	CapabilityDeterLight:              "deter_light",
	CapabilityDeterLingerDuration:     "deter_linger_duration",
	CapabilityInHomeChimeVolume:       "in_home_chime_volume",
	CapabilityMuteChime:               "mute_chime",
	CapabilityDoorbellChimeSelectable: "doorbell_chime_selectable",
	CapabilityVisitorChimeSelectable:  "visitor_chime_selectable",
	CapabilityPreviewChimeInHome:      "preview_chime_in_home",
	CapabilityVideoQuality:            "video_quality",
	CapabilityNightVision:             "night_vision",
	CapabilityRestoreDefaults:         "restore_defaults",
	CapabilityRebootCamera:            "reboot_camera",
	CapabilityDeleteAllEvents:         "delete_all_events",
	CapabilityHumidity:                "humidity",
	CapabilityHumidityControl:         "humidity_control",
	CapabilityCanInitiateCall:         "can_initiate_call",
	CapabilityMaxHeatLockSetPoint:     "max_heat_lock_set_point",
	CapabilityMinHeatLockSetPoint:     "min_heat_lock_set_point",
	CapabilityMaxCoolLockSetPoint:     "max_cool_lock_set_point",
	CapabilityMinCoolLockSetPoint:     "min_cool_lock_set_point",
	CapabilityDoorState:               "door_state",
	CapabilityCameraDVRCapable:        "camera_dvr_capable",
	CapabilityCanEnableDisableAudio:   "can_enable_disable_audio",
	CapabilityCanEnableDisableLED:     "can_enable_disable_led",
	CapabilityHasUserCode:             "has_user_code",
}

// ParseCapability returns CapabilityUnknown for unrecognised values.
func ParseCapability(v int) CapabilityType {
	if _, ok := capabilityNames[CapabilityType(v)]; ok {
		return CapabilityType(v)
	}
	return CapabilityUnknown
}

func (c CapabilityType) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}
