package pool

import (
	"context"
	"fmt"
)

// repairStrategy is one step of the ordered repair chain.
type repairStrategy struct {
	name  string
	apply func(ctx context.Context, s *Slot) error
}

// repair runs the repair chain for a slot whose validation failed,
// trying each strategy in order until one succeeds or the chain is
// exhausted.
//
// When the process is alive but the context failed its check, the chain
// is context-only recreation first, then a full rebuild. When the
// process is dead, only the full rebuild applies. Caller must hold
// s.opMu.
func (p *Pool) repair(ctx context.Context, s *Slot, processAlive bool) error {
	s.setState(StateRepairing)

	var lastErr error
	for _, strategy := range p.repairChain(processAlive) {
		err := strategy.apply(ctx, s)
		if err == nil {
			p.logger.Info("slot_repaired",
				"owner_key", s.ownerKey,
				"strategy", strategy.name,
			)
			return nil
		}
		lastErr = err
		p.logger.Warn("repair_strategy_failed",
			"owner_key", s.ownerKey,
			"strategy", strategy.name,
			"error", err,
		)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: repair chain empty", ErrCreationFailed)
	}
	return lastErr
}

// repairChain returns the ordered strategies for the given probe outcome.
func (p *Pool) repairChain(processAlive bool) []repairStrategy {
	rebuild := repairStrategy{name: "rebuild_session", apply: p.rebuildSession}
	if !processAlive {
		return []repairStrategy{rebuild}
	}
	return []repairStrategy{
		{name: "recreate_context", apply: p.recreateContext},
		rebuild,
	}
}

// recreateContext derives a fresh execution context from the slot's
// existing handle, keeping the process and its session state.
func (p *Pool) recreateContext(ctx context.Context, s *Slot) error {
	ec, err := p.provisioner.Derive(ctx, s.Handle())
	if err != nil {
		return fmt.Errorf("%w: derive: %v", ErrContextInvalid, err)
	}
	s.setContext(ec)
	return nil
}

// rebuildSession tears down the slot's dead or broken session and
// provisions a replacement. The old handle gets best-effort cleanup even
// though its process may already be gone; the allocation itself retries
// once inside provision before surfacing ErrCreationFailed.
func (p *Pool) rebuildSession(ctx context.Context, s *Slot) error {
	p.destroySession(ctx, s)

	h, ec, err := p.provision(ctx)
	if err != nil {
		return err
	}
	s.setSession(h, ec)

	p.rebuilt.Add(1)
	if p.callbacks.OnSessionRebuilt != nil {
		p.callbacks.OnSessionRebuilt(s.ownerKey)
	}
	p.logger.Info("session_rebuilt",
		"owner_key", s.ownerKey,
		"handle_id", h.ID(),
	)
	return nil
}
