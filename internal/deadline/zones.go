package deadline

import (
	"math"
	"sync"
	"time"

	_ "time/tzdata"
)

// commonZones is the pinned, alphabetically ordered set of zones used
// for the reverse offset-to-zone lookup. Ordering matters: the first
// zone matching an offset wins, which keeps redisplay deterministic
// across processes.
var commonZones = []string{
	"Africa/Cairo",
	"Africa/Johannesburg",
	"Africa/Lagos",
	"Africa/Nairobi",
	"America/Anchorage",
	"America/Argentina/Buenos_Aires",
	"America/Bogota",
	"America/Chicago",
	"America/Denver",
	"America/Halifax",
	"America/Los_Angeles",
	"America/Mexico_City",
	"America/New_York",
	"America/Phoenix",
	"America/Santiago",
	"America/Sao_Paulo",
	"America/St_Johns",
	"Asia/Bangkok",
	"Asia/Colombo",
	"Asia/Dhaka",
	"Asia/Dubai",
	"Asia/Hong_Kong",
	"Asia/Jakarta",
	"Asia/Karachi",
	"Asia/Kathmandu",
	"Asia/Kolkata",
	"Asia/Seoul",
	"Asia/Shanghai",
	"Asia/Singapore",
	"Asia/Tehran",
	"Asia/Tokyo",
	"Atlantic/Azores",
	"Australia/Adelaide",
	"Australia/Brisbane",
	"Australia/Darwin",
	"Australia/Perth",
	"Australia/Sydney",
	"Europe/Amsterdam",
	"Europe/Athens",
	"Europe/Berlin",
	"Europe/Dublin",
	"Europe/Helsinki",
	"Europe/Lisbon",
	"Europe/London",
	"Europe/Madrid",
	"Europe/Moscow",
	"Europe/Paris",
	"Pacific/Auckland",
	"Pacific/Chatham",
	"Pacific/Honolulu",
	"UTC",
}

var (
	loadZonesOnce sync.Once
	loadedZones   []*time.Location
)

func loadZones() []*time.Location {
	loadZonesOnce.Do(func() {
		for _, name := range commonZones {
			loc, err := time.LoadLocation(name)
			if err != nil {
				continue
			}
			loadedZones = append(loadedZones, loc)
		}
	})
	return loadedZones
}

// locationForOffset returns the first canonical zone whose UTC offset
// at the given instant matches, or UTC when none does.
func locationForOffset(hours float64, at time.Time) *time.Location {
	want := int(math.Round(hours * 3600))
	for _, loc := range loadZones() {
		if _, offset := at.In(loc).Zone(); offset == want {
			return loc
		}
	}
	return time.UTC
}
