package core

import "testing"

func TestNopLogChainsSafely(t *testing.T) {
	log := NopLog()
	log.Info().Str("k", "v").Msg("dropped")
	log.Debug().Int("n", 1).Msg("dropped")
	log.Warn().Err(nil).Msg("dropped")
	log.Error().Msg("dropped")
}
