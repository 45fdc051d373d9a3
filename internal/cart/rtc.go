package cart

import "time"

// nowUnix is the RTC's wall-clock source; tests substitute it to drive the
// clock deterministically instead of sleeping.
var nowUnix = time.Now().Unix
