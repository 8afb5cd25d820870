package verification

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultRecheckConcurrency caps parallel census calls during a fleet
// recheck. The census endpoint publishes no rate-limit contract, so the
// cap stays conservative.
const DefaultRecheckConcurrency = 4

// RecheckReport summarizes a fleet-wide recheck run.
type RecheckReport struct {
	Checked    int `json:"checked"`
	StillValid int `json:"still_valid"`
	Revoked    int `json:"revoked"`
	Failed     int `json:"failed"`
}

// RecheckAll reverifies every granted record in the organization. The
// records are independent and order-insensitive: one record's failure is
// counted, logged and skipped, never allowed to abort the batch. The
// remote deadline applies per call, not per batch.
func (s *Service) RecheckAll(ctx context.Context, organizationID string, concurrency int) (RecheckReport, error) {
	if concurrency <= 0 {
		concurrency = DefaultRecheckConcurrency
	}

	records, err := s.store.ListGranted(ctx, organizationID)
	if err != nil {
		return RecheckReport{}, err
	}

	var stillValid, revoked, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			outcome, err := s.Reverify(ctx, rec.ID)
			switch {
			case err != nil:
				failed.Add(1)
				s.logger.Warn("recheck failed",
					slog.String("authorization_id", rec.ID),
					slog.Any("error", err),
				)
			case outcome == OutcomeRevoked:
				revoked.Add(1)
			default:
				stillValid.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return RecheckReport{
		Checked:    len(records),
		StillValid: int(stillValid.Load()),
		Revoked:    int(revoked.Load()),
		Failed:     int(failed.Load()),
	}, nil
}
