package engine

import "time"

// Ticker abstracts time.Ticker so tests can drive polling and animation
// frames deterministically.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock provides time and tickers to the engine. Production uses the real
// clock; tests inject a fake.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }

func (r realTicker) Stop() { r.t.Stop() }
