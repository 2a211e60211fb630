package ports

import "time"

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock abstracts time so expiring state can be tested
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
