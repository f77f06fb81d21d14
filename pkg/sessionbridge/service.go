package sessionbridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bridge gives typed access to the redirect-surviving records on top of a
// Repository. Event records merge into what is already stored; writing a
// record never erases sibling keys.
type Bridge struct {
	repo Repository
}

// NewBridge creates a Bridge over repo.
func NewBridge(repo Repository) *Bridge {
	return &Bridge{repo: repo}
}

// SelectedPlan returns the stored plan snapshot for sid, if any.
func (b *Bridge) SelectedPlan(ctx context.Context, sid string) (SelectedPlan, bool, error) {
	var plan SelectedPlan
	raw, ok, err := b.repo.Get(ctx, sid, KeySelectedPlan)
	if err != nil || !ok {
		return plan, false, err
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return plan, false, fmt.Errorf("failed to decode selected plan: %w", err)
	}
	return plan, true, nil
}

// SetSelectedPlan stores the plan snapshot for sid, replacing any previous
// snapshot. The plan record is a whole unit, not a merge target.
func (b *Bridge) SetSelectedPlan(ctx context.Context, sid string, plan SelectedPlan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode selected plan: %w", err)
	}
	return b.repo.Set(ctx, sid, KeySelectedPlan, raw)
}

// ClearSelectedPlan drops the plan snapshot once a payment flow consumed it.
func (b *Bridge) ClearSelectedPlan(ctx context.Context, sid string) error {
	return b.repo.Delete(ctx, sid, KeySelectedPlan)
}

// GAEvents returns the accumulated analytics record for sid.
func (b *Bridge) GAEvents(ctx context.Context, sid string) (GAEvents, error) {
	var events GAEvents
	raw, ok, err := b.repo.Get(ctx, sid, KeyGAEvents)
	if err != nil {
		return nil, err
	}
	if !ok {
		return GAEvents{}, nil
	}
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("failed to decode analytics record: %w", err)
	}
	return events, nil
}

// MergeGAEvents folds src into the stored analytics record.
func (b *Bridge) MergeGAEvents(ctx context.Context, sid string, src GAEvents) error {
	current, err := b.GAEvents(ctx, sid)
	if err != nil {
		return err
	}
	merged := current.Merge(src)
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode analytics record: %w", err)
	}
	return b.repo.Set(ctx, sid, KeyGAEvents, raw)
}

// CSEvents returns the accumulated customer-success record for sid.
func (b *Bridge) CSEvents(ctx context.Context, sid string) (CSEvents, error) {
	var events CSEvents
	raw, ok, err := b.repo.Get(ctx, sid, KeyCSEvents)
	if err != nil {
		return nil, err
	}
	if !ok {
		return CSEvents{}, nil
	}
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("failed to decode tracking record: %w", err)
	}
	return events, nil
}

// MergeCSEvents folds src into the stored customer-success record.
func (b *Bridge) MergeCSEvents(ctx context.Context, sid string, src CSEvents) error {
	current, err := b.CSEvents(ctx, sid)
	if err != nil {
		return err
	}
	merged := current.Merge(src)
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode tracking record: %w", err)
	}
	return b.repo.Set(ctx, sid, KeyCSEvents, raw)
}

// AcqSources returns the stored acquisition record for sid, if any.
func (b *Bridge) AcqSources(ctx context.Context, sid string) (AcqSources, bool, error) {
	var acq AcqSources
	raw, ok, err := b.repo.Get(ctx, sid, KeyAcqSources)
	if err != nil || !ok {
		return acq, false, err
	}
	if err := json.Unmarshal(raw, &acq); err != nil {
		return acq, false, fmt.Errorf("failed to decode acquisition record: %w", err)
	}
	return acq, true, nil
}

// SetAcqSources stores the acquisition record for sid.
func (b *Bridge) SetAcqSources(ctx context.Context, sid string, acq AcqSources) error {
	raw, err := json.Marshal(acq)
	if err != nil {
		return fmt.Errorf("failed to encode acquisition record: %w", err)
	}
	return b.repo.Set(ctx, sid, KeyAcqSources, raw)
}

// Clear drops every record for sid, used on logout.
func (b *Bridge) Clear(ctx context.Context, sid string) error {
	return b.repo.DeleteAll(ctx, sid)
}
