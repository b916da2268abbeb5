package bluetooth

// LookupManufacturer returns a human-readable name for a Bluetooth SIG company ID.
// See: https://www.bluetooth.com/specifications/assigned-numbers/
func LookupManufacturer(companyID uint16) string {
	if name, ok := companyNames[companyID]; ok {
		return name
	}
	return ""
}

// Silicon vendors the strap firmware is likely to run on.
var companyNames = map[uint16]string{
	0x02E5: "Espressif",
	0x0059: "Nordic",
	0x000D: "Texas Inst.",
	0x000A: "Qualcomm",
	0x000F: "Broadcom",
	0x0002: "Intel",
	0x0030: "ST Micro",
	0x0131: "Cypress",
	0x02FF: "Silicon Labs",
	0x0046: "MediaTek",
	0x005D: "Realtek",
	0x0822: "Adafruit",
	0x004C: "Apple",
	0x0006: "Microsoft",
}
