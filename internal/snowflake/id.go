// Package snowflake provides time ordered 64 bit IDs for database rows.
package snowflake

import (
	"math/rand"
	"strconv"
	"time"
)

// ID is a Snowflake ID.
// 48 bits of milliseconds since the epoch, 16 bits of randomness.
type ID uint64

// Now returns an ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	return ID(uint64(ts.UnixMilli())<<16 | uint64(rand.Intn(1<<16)))
}

// ToTime returns the time encoded in the ID.
func (id ID) ToTime() time.Time {
	return time.UnixMilli(int64(id >> 16))
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
