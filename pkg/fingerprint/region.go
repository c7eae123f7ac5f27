package fingerprint

import "strings"

// timezoneRegions maps IANA timezone names to a coarse, display-friendly
// region. The mapping is deliberately approximate: it must be useful in a
// security notice without identifying the user more precisely than a
// timezone already does. No IP lookup is involved.
var timezoneRegions = map[string]string{
	"America/New_York":     "United States (Eastern)",
	"America/Detroit":      "United States (Eastern)",
	"America/Chicago":      "United States (Central)",
	"America/Denver":       "United States (Mountain)",
	"America/Phoenix":      "United States (Mountain)",
	"America/Los_Angeles":  "United States (Pacific)",
	"America/Anchorage":    "United States (Alaska)",
	"Pacific/Honolulu":     "United States (Hawaii)",
	"America/Toronto":      "Canada (Eastern)",
	"America/Vancouver":    "Canada (Pacific)",
	"America/Mexico_City":  "Mexico",
	"America/Sao_Paulo":    "Brazil",
	"America/Buenos_Aires": "Argentina",
	"Europe/London":        "United Kingdom",
	"Europe/Dublin":        "Ireland",
	"Europe/Paris":         "France",
	"Europe/Berlin":        "Germany",
	"Europe/Madrid":        "Spain",
	"Europe/Rome":          "Italy",
	"Europe/Amsterdam":     "Netherlands",
	"Europe/Brussels":      "Belgium",
	"Europe/Zurich":        "Switzerland",
	"Europe/Vienna":        "Austria",
	"Europe/Stockholm":     "Sweden",
	"Europe/Oslo":          "Norway",
	"Europe/Copenhagen":    "Denmark",
	"Europe/Helsinki":      "Finland",
	"Europe/Warsaw":        "Poland",
	"Europe/Prague":        "Czechia",
	"Europe/Lisbon":        "Portugal",
	"Europe/Athens":        "Greece",
	"Europe/Istanbul":      "Turkey",
	"Europe/Moscow":        "Russia",
	"Africa/Cairo":         "Egypt",
	"Africa/Lagos":         "Nigeria",
	"Africa/Nairobi":       "Kenya",
	"Africa/Johannesburg":  "South Africa",
	"Asia/Dubai":           "United Arab Emirates",
	"Asia/Riyadh":          "Saudi Arabia",
	"Asia/Beirut":          "Lebanon",
	"Asia/Jerusalem":       "Israel",
	"Asia/Karachi":         "Pakistan",
	"Asia/Kolkata":         "India",
	"Asia/Dhaka":           "Bangladesh",
	"Asia/Bangkok":         "Thailand",
	"Asia/Jakarta":         "Indonesia",
	"Asia/Singapore":       "Singapore",
	"Asia/Kuala_Lumpur":    "Malaysia",
	"Asia/Manila":          "Philippines",
	"Asia/Hong_Kong":       "Hong Kong",
	"Asia/Shanghai":        "China",
	"Asia/Taipei":          "Taiwan",
	"Asia/Seoul":           "South Korea",
	"Asia/Tokyo":           "Japan",
	"Australia/Sydney":     "Australia (Eastern)",
	"Australia/Melbourne":  "Australia (Eastern)",
	"Australia/Perth":      "Australia (Western)",
	"Pacific/Auckland":     "New Zealand",
}

// RegionFromTimezone derives an approximate display region from an IANA
// timezone name. Unmapped timezones fall back to the timezone's top-level
// segment ("Europe", "America", ...), then to "Unknown".
func RegionFromTimezone(timezone string) string {
	if timezone == "" {
		return "Unknown"
	}
	if region, ok := timezoneRegions[timezone]; ok {
		return region
	}
	if idx := strings.Index(timezone, "/"); idx > 0 {
		return timezone[:idx]
	}
	return "Unknown"
}
