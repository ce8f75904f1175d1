package store

import (
	"context"

	"github.com/internradar/internradar/internal/model"
)

// NopStore holds nothing: every posting looks new and nothing is written.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Load(context.Context) ([]model.Posting, error) { return nil, nil }
func (s *NopStore) Save(context.Context, []model.Posting) error    { return nil }

// DryRun reads from a real store but discards writes, so a one-off check
// dedupes against history without changing it.
type DryRun struct {
	inner model.Store
}

func NewDryRun(inner model.Store) *DryRun { return &DryRun{inner: inner} }

func (d *DryRun) Load(ctx context.Context) ([]model.Posting, error) { return d.inner.Load(ctx) }
func (d *DryRun) Save(context.Context, []model.Posting) error       { return nil }
