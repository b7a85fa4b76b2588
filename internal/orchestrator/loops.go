package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/forgeflow/forgeflow/internal/events"
	"github.com/forgeflow/forgeflow/internal/optimizer"
	"github.com/forgeflow/forgeflow/internal/persistence"
)

// monitorLoop scans the workspace on a fixed cadence while the drive
// loop runs, publishing each snapshot and recording it in the store.
func (r *Runner) monitorLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			snap, err := r.cfg.Monitor.Scan(now)
			if err != nil {
				log.Printf("WARNING: workspace scan failed: %v", err)
				continue
			}

			r.publish(events.TopicMonitor, events.SnapshotEvent{
				FilesChanged:   len(snap.FilesCreated) + len(snap.FilesModified),
				AverageQuality: snap.AverageQuality,
				CompletionRate: snap.CompletionRate,
				Trend:          string(r.cfg.Monitor.QualityTrend()),
				Timestamp:      snap.Time,
			})

			if r.cfg.Store != nil {
				rec := &persistence.SnapshotRecord{
					TakenAt:        snap.Time,
					FilesCreated:   len(snap.FilesCreated),
					FilesModified:  len(snap.FilesModified),
					AverageQuality: snap.AverageQuality,
					Coverage:       snap.Coverage,
					CompletionRate: snap.CompletionRate,
				}
				if err := r.cfg.Store.SaveSnapshot(ctx, r.cfg.RunID, rec); err != nil {
					log.Printf("WARNING: could not persist snapshot: %v", err)
				}
			}
		}
	}
}

// optimizeLoop reviews the latest snapshot on a slower cadence and hands
// any decided adjustment to the drive loop. The send never blocks, so a
// stalled drive loop drops the adjustment rather than wedging the review
// cycle; the next review re-decides from fresher data anyway.
func (r *Runner) optimizeLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.OptimizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			snap, ok := r.cfg.Monitor.Latest()
			if !ok {
				continue
			}

			assessment := optimizer.Assess(snap)
			adj := optimizer.Decide(assessment, snap.CompletionRate, now)
			if adj == nil {
				continue
			}

			select {
			case r.adjustCh <- adj:
			default:
				log.Printf("WARNING: adjustment queue full, dropping %v", adj.Kinds)
			}
		}
	}
}
