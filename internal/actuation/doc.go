// Package actuation drives a device through digital or analog actuation
// sequences and confirms the digital response through the signal cache.
//
// A digital test commands a signal low, high and low again. After each
// transition the engine polls the cache until the feedback signal shows the
// expected value and keeps it for the whole dwell window:
//
//	EnsureLow -> ActuateHigh -> EnsureLowAfterHigh -> WaitLowDwell -> Done
//
// An analog test routes a multiplexer channel and ramps a command value in
// fixed steps, holding each step for the dwell time:
//
//	DisableMux -> SetChannel -> SetMin -> EnableMux -> HoldInitial -> Ramp -> Done
//
// Both sequences always end with a cleanup that returns the bus to a safe
// state (signal low, or command zero and multiplexer disabled), whatever
// happened before. Cleanup errors are dropped and never change the result.
//
// The engine holds exclusive use of its adapter while a run is active.
// A second concurrent Run returns ErrBusy.
package actuation
