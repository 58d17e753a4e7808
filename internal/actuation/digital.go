package actuation

import (
	"context"
	"fmt"
)

// runDigital drives low, high, low and checks the feedback after each
// transition. The signal is always left low.
func (e *Engine) runDigital(ctx context.Context, d *Descriptor) (res Result) {
	spec := d.Digital
	low := map[string]any{spec.Signal: spec.ValueLow}
	high := map[string]any{spec.Signal: spec.ValueHigh}
	fb := Feedback{Signal: d.FeedbackSignal, MessageID: d.FeedbackMessageID}

	state := StateIdle
	step := func(next State) {
		e.enter(d.Name, state, next)
		state = next
	}

	defer func() {
		step(StateCleanup)
		cctx, cancel := e.cleanupContext(ctx)
		defer cancel()
		if err := e.send(cctx, d.Name, "cleanup low", spec.MessageID, low, spec.Selector); err != nil {
			e.config.Logger.Debug("cleanup failed", "test", d.Name, "error", err)
		}
		step(StateDone)
	}()

	step(StateEnsureLow)
	if err := e.send(ctx, d.Name, "ensure low", spec.MessageID, low, spec.Selector); err != nil {
		return sendFailure(err)
	}
	if err := contextSleep(ctx, e.config.Settle); err != nil {
		return cancelled(err)
	}

	step(StateActuateHigh)
	if err := e.send(ctx, d.Name, "actuate high", spec.MessageID, high, spec.Selector); err != nil {
		return sendFailure(err)
	}
	highOK, highDetail := e.WaitForValue(ctx, fb, parseExpected(spec.ValueHigh), spec.Dwell())

	step(StateEnsureLowAfterHigh)
	if err := e.send(ctx, d.Name, "ensure low after high", spec.MessageID, low, spec.Selector); err != nil {
		return sendFailure(err)
	}
	if err := contextSleep(ctx, e.config.Settle); err != nil {
		return cancelled(err)
	}

	step(StateWaitLowDwell)
	lowOK, lowDetail := e.WaitForValue(ctx, fb, parseExpected(spec.ValueLow), spec.Dwell())

	res = Result{
		Passed: highOK && lowOK,
		Detail: fmt.Sprintf("HIGH: %s; LOW: %s", highDetail, lowDetail),
	}
	switch {
	case !highOK:
		res.Err = &Error{Kind: KindTimeout, Op: "wait high", Err: fmt.Errorf("%s", highDetail)}
	case !lowOK:
		res.Err = &Error{Kind: KindTimeout, Op: "wait low", Err: fmt.Errorf("%s", lowDetail)}
	}
	return res
}

func cancelled(err error) Result {
	return Result{
		Detail: fmt.Sprintf("Cancelled: %v", err),
		Err:    &Error{Kind: KindTimeout, Op: "settle", Err: err},
	}
}
