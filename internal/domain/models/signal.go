package models

// Signal is the trade action emitted by the pipeline.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Active reports whether the signal asks for a trade.
func (s Signal) Active() bool { return s == SignalBuy || s == SignalSell }

func (s Signal) String() string { return string(s) }
