package service

import "math/rand/v2"

// XPRange is an inclusive range of XP awarded per activity
type XPRange struct {
	Min int64
	Max int64
}

// XPRoller picks an amount from r
type XPRoller func(r XPRange) int64

// RandomXP picks uniformly from r. A degenerate range yields Min.
func RandomXP(r XPRange) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.Int64N(r.Max-r.Min+1)
}
