package metagen

import (
	"context"

	"go.uber.org/zap"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// BatchSummary counts the outcome of RunBatch.
type BatchSummary struct {
	Succeeded int
	Failed    int

	// Skipped records were already complete, or were left pending because
	// the context was cancelled.
	Skipped int
}

// RunBatch analyzes the records one at a time, in order.  Each record moves
// from pending to processing to complete or error, and onUpdate, when not
// nil, is called after every transition.  A failing record never stops the
// batch; its error is stored on the record.  Records that are already
// complete are skipped, so a batch can be resumed.
func (c *Client) RunBatch(ctx context.Context, records []*stock.Record, opts Options, onUpdate func(*stock.Record)) BatchSummary {
	var summary BatchSummary

	notify := func(r *stock.Record) {
		if onUpdate != nil {
			onUpdate(r)
		}
	}

	for _, record := range records {
		if record.Status == stock.StatusComplete || ctx.Err() != nil {
			summary.Skipped++
			continue
		}

		record.Status = stock.StatusProcessing
		record.Error = ""
		notify(record)

		result, err := c.analyzeRecord(ctx, record, opts)
		if err != nil {
			c.logger.Error("failed to analyze file", zap.String("file", record.Name), zap.Error(err))

			record.Status = stock.StatusError
			record.Error = err.Error()
			summary.Failed++
		} else {
			record.Status = stock.StatusComplete
			record.Result = result
			summary.Succeeded++
		}

		notify(record)
	}

	return summary
}

func (c *Client) analyzeRecord(ctx context.Context, record *stock.Record, opts Options) (*stock.Result, error) {
	file, err := record.Source()
	if err != nil {
		return nil, err
	}

	return c.Analyze(ctx, file, opts)
}
