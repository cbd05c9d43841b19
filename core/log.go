package core

import "github.com/rs/zerolog"

type Log interface {
	Info() *zerolog.Event
	Debug() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

var nop = zerolog.Nop()

type nopLog struct{}

func (nopLog) Info() *zerolog.Event  { return nop.Info() }
func (nopLog) Debug() *zerolog.Event { return nop.Debug() }
func (nopLog) Warn() *zerolog.Event  { return nop.Warn() }
func (nopLog) Error() *zerolog.Event { return nop.Error() }

// NopLog discards everything. Used when the caller passes no logger.
func NopLog() Log { return nopLog{} }
