package economy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func buckets(current, capacity int64) [ResourceCount]Bucket {
	var b [ResourceCount]Bucket
	for i := range b {
		b[i] = Bucket{Current: d(current), Cap: d(capacity)}
	}
	return b
}

func TestLedger(t *testing.T) {
	t.Run("Add Clamps", func(t *testing.T) {
		l := NewLedger(d(1000), d(10000))
		assert.True(t, d(10000).Equal(l.Add(Gold, d(1e6))))
		assert.True(t, decimal.Zero.Equal(l.Add(Food, d(-5000))))
	})

	t.Run("Spend All Or Nothing", func(t *testing.T) {
		l := NewLedger(d(100), d(1000))
		err := l.Spend(map[Resource]decimal.Decimal{Gold: d(50), Food: d(150)})
		require.ErrorIs(t, err, errs.ErrResourceExhausted)
		assert.True(t, d(100).Equal(l.Bucket(Gold).Current))

		require.NoError(t, l.Spend(map[Resource]decimal.Decimal{Gold: d(50), Food: d(100)}))
		assert.True(t, d(50).Equal(l.Bucket(Gold).Current))
		assert.True(t, decimal.Zero.Equal(l.Bucket(Food).Current))

		require.ErrorIs(t, l.Spend(map[Resource]decimal.Decimal{Gold: d(-1)}), errs.ErrValidation)
	})

	t.Run("Apply Keeps Racing Spend", func(t *testing.T) {
		l := NewLedger(d(500), d(10000))
		work := Work{
			Producers: []Registration{{ID: entity.NewID(), Resource: Faith, RatePerSec: d(10), Active: true}},
			Buckets:   l.Buckets(),
			DT:        time.Second,
		}
		res := Compute(work)

		// spend lands between building the work item and applying its result
		require.NoError(t, l.Spend(map[Resource]decimal.Decimal{Faith: d(4)}))

		require.Len(t, res.Changes, 1)
		got := l.Apply(res.Changes[0])
		assert.Equal(t, "506", got.String())
		assert.True(t, d(10).Equal(l.Rate(Faith)))
	})
}

func TestCompute(t *testing.T) {
	id := entity.NewID()

	t.Run("Net Rate", func(t *testing.T) {
		res := Compute(Work{
			Producers: []Registration{
				{ID: id, Resource: Gold, RatePerSec: d(5), Active: true},
				{ID: entity.NewID(), Resource: Gold, RatePerSec: d(100), Active: false},
			},
			Consumers: []Registration{{ID: id, Resource: Gold, RatePerSec: d(2), Active: true}},
			Buckets:   buckets(100, 1000),
			DT:        2 * time.Second,
		})
		require.Len(t, res.Changes, 1)
		c := res.Changes[0]
		assert.Equal(t, Gold, c.Resource)
		assert.Equal(t, "106", c.Current.String())
		assert.Equal(t, "3", c.Rate.String())
	})

	t.Run("Clamp", func(t *testing.T) {
		res := Compute(Work{
			Producers: []Registration{{ID: id, Resource: Food, RatePerSec: d(1000), Active: true}},
			Consumers: []Registration{{ID: id, Resource: Labor, RatePerSec: d(1000), Active: true}},
			Buckets:   buckets(500, 600),
			DT:        time.Second,
		})
		require.Len(t, res.Changes, 2)
		assert.Equal(t, "600", res.Changes[0].Current.String())
		assert.Equal(t, "0", res.Changes[1].Current.String())
	})

	t.Run("No Drift", func(t *testing.T) {
		b := buckets(0, 1000)
		for i := 0; i < 1000; i++ {
			res := Compute(Work{
				Producers: []Registration{{ID: id, Resource: Gold, RatePerSec: decimal.RequireFromString("0.1"), Active: true}},
				Buckets:   b,
				DT:        time.Second,
			})
			b[Gold].Current = res.Changes[0].Current
		}
		assert.Equal(t, "100", b[Gold].Current.String())
	})

	t.Run("Unchanged Buckets Omitted", func(t *testing.T) {
		res := Compute(Work{Buckets: buckets(10, 10), DT: time.Second})
		assert.Empty(t, res.Changes)
	})
}

func TestWorker(t *testing.T) {
	work, results := queue.New[Work](), queue.New[Result]()
	w := NewWorker(work, results, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, work.Send(Work{Buckets: buckets(1, 10), DT: time.Second}))
	res, err := results.Recv(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Changes)

	work.Close()
	require.NoError(t, <-done)
	cancel()
}

func TestResource(t *testing.T) {
	r, err := ParseResource("Faith")
	require.NoError(t, err)
	assert.Equal(t, Faith, r)
	_, err = ParseResource("oil")
	require.Error(t, err)
	assert.Equal(t, Resource(3), Faith)
}
