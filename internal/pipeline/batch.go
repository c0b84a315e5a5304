package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"call-intelligence/pkg/logger"
)

// Batch item statuses.
const (
	BatchCompleted = "completed"
	BatchFailed    = "failed"
)

// BatchItem summarises one file of a batch.
type BatchItem struct {
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	CallID        string `json:"call_id,omitempty"`
	FinalAction   string `json:"final_action,omitempty"`
	PriorityScore int    `json:"priority_score,omitempty"`
	PriorityLevel string `json:"priority_level,omitempty"`
	Stage         Stage  `json:"failed_stage,omitempty"`
	Error         string `json:"error,omitempty"`
}

// busyWait bounds how long a batch file waits for a workspace slot.
const busyWait = 2 * time.Minute

// ProcessBatch runs Process over every input with bounded parallelism. One
// file's failure never stops its siblings. Items come back in input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []AudioInput) []BatchItem {
	items := make([]BatchItem, len(inputs))

	var g errgroup.Group
	g.SetLimit(p.parallel)
	for i, in := range inputs {
		g.Go(func() error {
			items[i] = p.processItem(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Status == BatchFailed {
			failed++
		}
	}
	logger.From(ctx).Info("batch finished", "files", len(inputs), "failed", failed)
	return items
}

func (p *Pipeline) processItem(ctx context.Context, in AudioInput) BatchItem {
	item := BatchItem{Filename: in.Filename}
	if item.Filename == "" {
		item.Filename = in.AudioPath
	}

	var res Result
	op := func() error {
		var err error
		res, err = p.Process(ctx, in)
		if err != nil && !errors.Is(err, ErrBusy) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = busyWait
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		item.Status = BatchFailed
		item.Stage = StageOf(err)
		item.Error = err.Error()
		logger.From(ctx).Warn("batch file failed", "file", item.Filename, "stage", item.Stage, "err", err)
		return item
	}

	d := res.Call.Decision
	item.Status = BatchCompleted
	item.CallID = res.Call.ID
	item.FinalAction = d.FinalAction
	item.PriorityScore = d.PriorityScore
	item.PriorityLevel = d.PriorityLevel
	return item
}
