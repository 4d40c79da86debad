package types

// EquipmentCode identifies the hardware model of a wireless sensor.
type EquipmentCode int

const (
	EquipmentCodeUnknown EquipmentCode = -1
	EquipmentCodeOther   EquipmentCode = 0
)

var equipmentCodeNames = map[EquipmentCode]string{
	EquipmentCodeOther: "OTHER",
	470: "HW_R_DW_5818_MNL",
	475: "EXISTING_GLASS_BREAK",
	491: "HW_PANIC_PENDANT_5802_MN2",
	519: "HW_GLASS_BREAK_5853",
	530: "HW_PIR_5894_PI",
	533: "HW_PIR_5890",
	556: "EXISTING_FLOOD_TEMP",
	557: "HW_HEAT_SENSOR_5809",
	577: "EXISTING_KEY_FOB_REMOTE",
	589: "HW_SMOKE_5808_W3",
	609: "EXISTING_MOTION_DETECTOR",
	616: "EXISTING_SMOKE",
	624: "HW_FLOOD_SENSOR_5821",
	655: "EXISTING_DOOR_WINDOW_CONTACT",
	673: "HW_DW_5816",
	692: "EXISTING_CO",
	708: "EXISTING_HEAT",
	859: "CO1_CO_CANADA",
	860: "CO1_CO",
	862: "DW10_THIN_DOOR_WINDOW",
	863: "DW20_RECESSED_DOOR",
	864: "GB1_GLASS_BREAK",
	866: "KEY1_345_4_BUTTON_KEY_FOB_REMOTE",
	867: "PAD1_345_WIRELESS_KEYPAD",
	868: "PANIC1",
	869: "PIR1_MOTION",
	871: "SMKE1_SMOKE_CANADA",
	872: "SMKE1_SMOKE",
	873: "TAKE_TAKEOVER",
	895: "SMKT2_GE_SMOKE_HEAT",
	941: "RE224_GT_GE_TRANSLATOR",
	1026: "CO3_2_GIG_CO",
	1058: "SMKT3_2_GIG",
	1061: "GARAGE01_RESOLUTION_TILT",
	1063: "DBELL1_2_GIG_DOORBELL",
	1066: "SMKT6_2_GIG",
	1128: "RE219_FLOOD_SENSOR",
	1144: "RE220_T_2_GIG_REPEATER",
	1208: "RE224_DT_DSC_TRANSLATOR",
	1248: "GB2_GLASS_BREAK",
	1249: "PIR2_MOTION",
	1250: "SECURE_KEY_345_MHZ",
	1251: "DW11_THIN_DOOR_WINDOW",
	1252: "DW21_R_RECESSED_DOOR",
	1253: "PANIC2",
	1254: "CARBON_MONOXIDE_DETECTOR_345_MHZ",
	1264: "SWS1_SMART_WATER_SENSOR",
	1266: "VS_CO3_DETECTOR",
	1267: "VS_SMKT_SMOKE_DETECTOR",
	1269: "FIREFIGHTER_AUDIO_DETECTOR",
	2081: "REPEATER_345_MHZ",
	2830: "RE524_X_WIRELESS_TAKEOVER",
	2831: "TILT_SENSOR_2_GIG_345",
	2832: "RE508_X_REPEATER",
	4000: "DW12_THIN_DOOR_WINDOW",
	4020: "PIR3_MOTION",
	4030: "GB3_GLASS_BREAK",
	4040: "APOLLO_COMBO_SMOKE",
	4050: "APOLLO_COMBO_CO",
	4130: "PANIC3",
}

// ParseEquipmentCode returns EquipmentCodeUnknown for codes not in the table.
func ParseEquipmentCode(v int) EquipmentCode {
	if _, ok := equipmentCodeNames[EquipmentCode(v)]; ok {
		return EquipmentCode(v)
	}
	return EquipmentCodeUnknown
}

// String returns the upstream model name, e.g. "PIR2_MOTION".
func (e EquipmentCode) String() string {
	if name, ok := equipmentCodeNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}
