package economy

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
)

// Registration is a producer or consumer rate attached to an entity.
type Registration struct {
	ID         entity.ID
	Resource   Resource
	RatePerSec decimal.Decimal
	Active     bool
}

type Work struct {
	Producers []Registration
	Consumers []Registration
	Buckets   [ResourceCount]Bucket
	DT        time.Duration
}

// Change is the integrated value of one bucket. Base is the stock the worker
// started from.
type Change struct {
	Resource Resource
	Base     decimal.Decimal
	Current  decimal.Decimal
	Cap      decimal.Decimal
	Rate     decimal.Decimal
}

type Result struct {
	Changes []Change
}

// Compute integrates net rates over DT. Only buckets whose stock changed are
// reported.
func Compute(w Work) Result {
	var net [ResourceCount]decimal.Decimal
	for _, p := range w.Producers {
		if p.Active && p.Resource.Valid() {
			net[p.Resource] = net[p.Resource].Add(p.RatePerSec)
		}
	}
	for _, c := range w.Consumers {
		if c.Active && c.Resource.Valid() {
			net[c.Resource] = net[c.Resource].Sub(c.RatePerSec)
		}
	}

	dt := decimal.NewFromInt(w.DT.Microseconds()).Div(decimal.NewFromInt(int64(time.Second / time.Microsecond)))

	var res Result
	for r := Resource(0); r < ResourceCount; r++ {
		b := w.Buckets[r]
		next := clamp(b.Current.Add(net[r].Mul(dt)), decimal.Zero, b.Cap)
		if next.Equal(b.Current) {
			continue
		}
		res.Changes = append(res.Changes, Change{
			Resource: r,
			Base:     b.Current,
			Current:  next,
			Cap:      b.Cap,
			Rate:     net[r],
		})
	}
	return res
}

type Worker struct {
	work    *queue.Unbounded[Work]
	results *queue.Unbounded[Result]
	logger  log.Log
}

func NewWorker(work *queue.Unbounded[Work], results *queue.Unbounded[Result], logger log.Log) *Worker {
	return &Worker{work: work, results: results, logger: logger.With(log.String("component", "economy"))}
}

func (w *Worker) Run(ctx context.Context) error {
	err := queue.Serve(ctx, w.work, w.results, func(_ context.Context, work Work) Result {
		return Compute(work)
	})
	if errors.Is(err, errs.ErrChannelClosed) {
		w.logger.Info("economy queue closed, worker exiting")
		return nil
	}
	return err
}
