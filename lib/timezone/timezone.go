package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the registrar's campus zone, dates printed by the
// registration site are in this zone.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}
