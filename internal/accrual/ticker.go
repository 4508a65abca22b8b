package accrual

import "time"

// Ticker delivers periodic firings. *time.Ticker satisfies it through systemTicker.
type Ticker interface {
	C() <-chan time.Time // Firing channel
	Stop()               // Release the ticker
}

// TickerFactory creates a Ticker for the given period.
type TickerFactory func(d time.Duration) Ticker

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// SystemTicker is the default TickerFactory backed by time.NewTicker.
func SystemTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}
