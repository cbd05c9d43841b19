package marginfi

import "fmt"

// HealthCacheSimulationError reports a failed health-cache simulation: the
// on-chain program error code plus the engine's internal code decoded from
// the simulated cache. It always travels alongside the fallback account so
// the caller can keep working on best-effort numbers.
type HealthCacheSimulationError struct {
	ProgramErrorCode  uint32
	InternalErrorCode uint32
	ErrorIndex        uint8

	// Message carries the RPC-level failure when simulation never produced
	// a decodable account at all.
	Message string
}

func (e *HealthCacheSimulationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("health cache simulation failed: %s", e.Message)
	}
	return fmt.Sprintf("health cache simulation failed: program error %d, internal error %d (balance index %d)",
		e.ProgramErrorCode, e.InternalErrorCode, e.ErrorIndex)
}
