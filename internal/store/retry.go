package store

import (
	"context"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/resilience"
)

// retryStore retries Store calls that fail with transient errors, such as a
// locked SQLite file or a Postgres serialization failure.
type retryStore struct {
	Store
	policy resilience.Policy
}

// WithRetry wraps st so its run operations are retried under p. Migrate and
// Close are not retried.
func WithRetry(st Store, p resilience.Policy) Store {
	return &retryStore{Store: st, policy: p}
}

func (r *retryStore) with(op string) resilience.Policy {
	p := r.policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.LogRetries("store." + op)
	}
	return p
}

func (r *retryStore) SaveRun(ctx context.Context, run *model.Run) error {
	return resilience.Do(ctx, r.with("save_run"), func(ctx context.Context) error {
		return r.Store.SaveRun(ctx, run)
	})
}

func (r *retryStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return resilience.DoVal(ctx, r.with("get_run"), func(ctx context.Context) (*model.Run, error) {
		return r.Store.GetRun(ctx, id)
	})
}

func (r *retryStore) LatestRun(ctx context.Context, city string) (*model.Run, error) {
	return resilience.DoVal(ctx, r.with("latest_run"), func(ctx context.Context) (*model.Run, error) {
		return r.Store.LatestRun(ctx, city)
	})
}

func (r *retryStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	return resilience.DoVal(ctx, r.with("list_runs"), func(ctx context.Context) ([]model.Run, error) {
		return r.Store.ListRuns(ctx, filter)
	})
}
