package session

import "time"

// Ticker delivers the one-second cadence that drives Session.Tick.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a Ticker for the given interval.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.Ticker.
func NewRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }
