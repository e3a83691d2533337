package correction

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/normalize"
)

// DuplicateGroup partitions active venues sharing a normalized name by
// coordinate quality.
type DuplicateGroup struct {
	Key     string // normalized name
	Valid   []*model.Venue
	Invalid []*model.Venue
	Missing []*model.Venue // no coordinates at all
}

func (g *DuplicateGroup) size() int {
	return len(g.Valid) + len(g.Invalid) + len(g.Missing)
}

// MergeResult records the effect of merging one duplicate group.
type MergeResult struct {
	Kept    *model.Venue
	Deleted []*model.Venue
}

// DedupeReport aggregates a full duplicate pass.
type DedupeReport struct {
	Groups       int
	Deleted      int
	ManualReview int
}

// FindDuplicates groups active venues by normalized name and returns
// every group with more than one member.
func (e *Engine) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	venues, err := e.store.ListActiveVenues(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*DuplicateGroup)

	for _, venue := range venues {
		key := normalize.Name(venue.Name)
		if key == "" {
			continue
		}

		group, ok := byName[key]
		if !ok {
			group = &DuplicateGroup{Key: key}
			byName[key] = group
		}

		coord, hasCoord := venue.Coordinate()

		switch {
		case !hasCoord:
			group.Missing = append(group.Missing, venue)
		case bounds.IsValid(coord, venue.Country):
			group.Valid = append(group.Valid, venue)
		default:
			group.Invalid = append(group.Invalid, venue)
		}
	}

	var groups []DuplicateGroup

	for _, group := range byName {
		if group.size() > 1 {
			groups = append(groups, *group)
		}
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })

	return groups, nil
}

// MergeDuplicates resolves one group. Valid members survive invalid
// ones; among multiple valid members the one with an external id is
// kept; coordinate-less members are removed whenever a valid member
// exists. A group with no valid member is never touched automatically,
// so the sole record for a name survives even when it is bad.
func (e *Engine) MergeDuplicates(ctx context.Context, group DuplicateGroup) (*MergeResult, error) {
	if len(group.Valid) == 0 {
		return nil, fmt.Errorf("group %q: %w", group.Key, ErrAmbiguousGroup)
	}

	keep := pickSurvivor(group.Valid)

	result := &MergeResult{Kept: keep}

	for _, venue := range group.Valid {
		if venue.ID != keep.ID {
			result.Deleted = append(result.Deleted, venue)
		}
	}

	result.Deleted = append(result.Deleted, group.Invalid...)
	result.Deleted = append(result.Deleted, group.Missing...)

	for _, venue := range result.Deleted {
		if err := e.store.DeleteVenue(ctx, venue.ID); err != nil {
			return result, fmt.Errorf("delete duplicate venue %d: %w", venue.ID, err)
		}

		e.metrics.DuplicatesDeleted.Inc()
		e.logger.Info("deleted duplicate venue",
			zap.String("group", group.Key), zap.Uint("venue_id", venue.ID), zap.Uint("kept_id", keep.ID))
	}

	return result, nil
}

// Dedupe runs the full duplicate pass, cancellable between groups.
func (e *Engine) Dedupe(ctx context.Context) (*DedupeReport, error) {
	groups, err := e.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	report := &DedupeReport{Groups: len(groups)}

	var errs error

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}

		result, err := e.MergeDuplicates(ctx, group)
		if err != nil {
			if result != nil {
				report.Deleted += len(result.Deleted)
			}

			report.ManualReview++
			errs = multierr.Append(errs, err)

			continue
		}

		report.Deleted += len(result.Deleted)
	}

	return report, errs
}

// pickSurvivor prefers existence of an external id over completeness of
// descriptive fields; ties break on the oldest record.
func pickSurvivor(valid []*model.Venue) *model.Venue {
	keep := valid[0]

	for _, venue := range valid[1:] {
		keepHasID := keep.ExternalID != nil
		venueHasID := venue.ExternalID != nil

		if venueHasID && !keepHasID || venueHasID == keepHasID && venue.ID < keep.ID {
			keep = venue
		}
	}

	return keep
}
