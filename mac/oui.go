package mac

// ouiVendors maps upper-cased OUI prefixes to vendor names. Read-only after init.
var ouiVendors = map[string]string{
	// D-Link
	"00:11:22": "D-Link",
	"00:17:9A": "D-Link",
	"00:1B:11": "D-Link",
	"00:1C:F0": "D-Link",
	"1C:7E:E5": "D-Link",

	// Virtualization
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"08:00:27": "Oracle VirtualBox",
	"52:54:00": "QEMU/KVM",
	"00:15:5D": "Microsoft Hyper-V",

	// Computers
	"00:1B:21": "Intel",
	"00:23:24": "Dell",
	"00:03:93": "Apple",
	"3C:07:54": "Apple",

	// Cisco
	"00:25:90": "Cisco",
	"00:26:0A": "Cisco",
	"00:0F:34": "Cisco",
	"00:1A:30": "Cisco",
	"70:72:CF": "Cisco",
	"00:04:96": "Cisco",
	"00:30:96": "Cisco",
	"00:08:2F": "Cisco",
	"00:60:5C": "Cisco",
	"00:90:0B": "Cisco",
	"00:A0:24": "Cisco",
	"00:E0:1E": "Cisco",
	"40:55:39": "Cisco",

	// Huawei
	"00:1D:71": "Huawei",
	"00:25:9E": "Huawei",
	"4C:54:99": "Huawei",
	"00:E0:FC": "Huawei",
	"00:46:70": "Huawei",
	"28:6E:D4": "Huawei",
	"6C:92:BF": "Huawei",

	// HP
	"00:03:0F": "HP",
	"00:08:02": "HP",
	"00:0B:CD": "HP",
	"00:11:85": "HP",
	"00:13:21": "HP",
	"00:15:60": "HP",
	"00:16:35": "HP",
	"00:17:A4": "HP",
	"00:18:71": "HP",
	"00:19:BB": "HP",
	"00:1A:4B": "HP",
	"00:1B:78": "HP",
	"00:1C:C4": "HP",
	"00:1E:0B": "HP",
	"00:1F:29": "HP",
	"00:21:5A": "HP",
	"00:22:64": "HP",
	"00:23:7D": "HP",
	"00:24:81": "HP",
	"00:25:B3": "HP",
}
