package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// Reconcile patches Pending records of instrument whose age lies between
// ReconcileMinAge and ReconcileMaxAge with the freshest observed close.
// It returns how many records were patched; on error, records not yet
// patched stay Pending.
func (s *Service) Reconcile(ctx context.Context, instrument string) (int, error) {
	if s.cfg.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ReconcileTimeout)
		defer cancel()
	}

	unlock, err := s.locks.lock(ctx, instrument)
	if err != nil {
		return 0, fmt.Errorf("wait for %s: %w", instrument, err)
	}
	defer unlock()

	now := s.now()
	pending, err := s.ledger.ListPending(ctx, instrument, now.Add(-s.cfg.ReconcileMaxAge))
	if err != nil {
		return 0, storageErr("list pending", err)
	}
	cutoff := now.Add(-s.cfg.ReconcileMinAge)
	due := pending[:0]
	for _, rec := range pending {
		if !rec.CreatedAt.After(cutoff) {
			due = append(due, rec)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	price, err := s.source.LatestClose(ctx, instrument)
	if err != nil {
		return 0, err
	}

	patched := 0
	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return patched, err
		}
		if _, err := s.ledger.PatchActualPrice(ctx, rec.ID, price); err != nil {
			return patched, storageErr(fmt.Sprintf("patch record %d", rec.ID), err)
		}
		patched++
	}
	return patched, nil
}

// ReconcileAll reconciles every instrument concurrently. Failures are
// logged and counted, never returned; the result maps instrument to the
// number of records patched.
func (s *Service) ReconcileAll(ctx context.Context) map[string]int {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]int, len(s.cfg.Instruments))
	)
	for _, inst := range s.cfg.Instruments {
		wg.Add(1)
		go func(inst string) {
			defer wg.Done()
			n, err := s.Reconcile(ctx, inst)
			if n > 0 {
				s.metrics.RecordsPatched(inst, n)
			}
			if err != nil {
				kind := Kind(err)
				s.metrics.Failure(inst, "reconcile", string(kind))
				s.log.Warn().Err(err).Str("instrument", inst).Str("kind", string(kind)).Int("patched", n).Msg("reconcile failed")
			} else if n > 0 {
				s.log.Info().Str("instrument", inst).Int("patched", n).Msg("records reconciled")
			}
			mu.Lock()
			out[inst] = n
			mu.Unlock()
		}(inst)
	}
	wg.Wait()
	return out
}
