package actuation

import (
	"context"
	"fmt"
)

// runAnalog routes the multiplexer and ramps the command from MinMV to
// MaxMV. Cleanup zeroes the command and disables the multiplexer.
func (e *Engine) runAnalog(ctx context.Context, d *Descriptor) Result {
	spec := d.Analog
	hasMux := spec.MuxEnableSignal != ""

	state := StateIdle
	step := func(next State) {
		e.enter(d.Name, state, next)
		state = next
	}
	set := func(c context.Context, op, signal string, value int) error {
		return e.send(c, d.Name, op, spec.MessageID, map[string]any{signal: value}, spec.Selector)
	}

	defer func() {
		step(StateCleanup)
		cctx, cancel := e.cleanupContext(ctx)
		defer cancel()
		if err := set(cctx, "cleanup command", spec.CommandSignal, 0); err != nil {
			e.config.Logger.Debug("cleanup failed", "test", d.Name, "error", err)
		}
		_ = contextSleep(cctx, e.config.CleanupSettle)
		if hasMux {
			if err := set(cctx, "cleanup mux", spec.MuxEnableSignal, 0); err != nil {
				e.config.Logger.Debug("cleanup failed", "test", d.Name, "error", err)
			}
			_ = contextSleep(cctx, e.config.CleanupSettle)
		}
		step(StateDone)
	}()

	if spec.CommandSignal == "" {
		return failure(configError("analog", "test %q: command signal missing", d.Name))
	}
	if spec.StepMV <= 0 {
		return failure(configError("analog", "test %q: step_mv must be positive, got %d", d.Name, spec.StepMV))
	}

	if hasMux {
		step(StateDisableMux)
		if err := set(ctx, "disable mux", spec.MuxEnableSignal, 0); err != nil {
			return sendFailure(err)
		}
		if spec.MuxChannelSignal != "" {
			step(StateSetChannel)
			if err := set(ctx, "set channel", spec.MuxChannelSignal, spec.MuxChannelValue); err != nil {
				return sendFailure(err)
			}
		}
	}

	step(StateSetMin)
	if err := set(ctx, "set min", spec.CommandSignal, spec.MinMV); err != nil {
		return sendFailure(err)
	}

	if hasMux {
		step(StateEnableMux)
		if err := set(ctx, "enable mux", spec.MuxEnableSignal, 1); err != nil {
			return sendFailure(err)
		}
	}

	step(StateHoldInitial)
	if err := contextSleep(ctx, spec.Dwell()); err != nil {
		return cancelled(err)
	}

	step(StateRamp)
	steps := 0
	for current := spec.MinMV; current < spec.MaxMV; {
		if spec.MaxMV-current <= spec.StepMV {
			current = spec.MaxMV
		} else {
			current += spec.StepMV
		}
		if err := set(ctx, "ramp", spec.CommandSignal, current); err != nil {
			return sendFailure(err)
		}
		if err := contextSleep(ctx, spec.Dwell()); err != nil {
			return cancelled(err)
		}
		steps++
	}

	return Result{
		Passed: true,
		Detail: fmt.Sprintf("Ramped %s %d..%d mV in %d steps", spec.CommandSignal, spec.MinMV, spec.MaxMV, steps),
	}
}
