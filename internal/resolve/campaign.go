package resolve

import (
	"sort"

	"github.com/google/uuid"

	"signage-backend/internal/model"
)

// PlayCounts holds per-item plays of one campaign on one device.
type PlayCounts struct {
	Hour map[uuid.UUID]int64
	Day  map[uuid.UUID]int64
}

func sum(m map[uuid.UUID]int64) int64 {
	var total int64
	for _, n := range m {
		total += n
	}
	return total
}

func capReached(limit *int, plays int64) bool {
	return limit != nil && *limit > 0 && plays >= int64(*limit)
}

// CampaignTargets reports whether any of the campaign's targets selects the device.
func CampaignTargets(c *model.Campaign, d *model.Device) bool {
	for _, t := range c.Targets {
		switch t.TargetType {
		case model.TargetAll:
			return true
		case model.TargetScreen:
			if t.TargetID != nil && *t.TargetID == d.ID {
				return true
			}
		case model.TargetScreenGroup:
			if t.TargetID != nil && d.GroupID != nil && *t.TargetID == *d.GroupID {
				return true
			}
		case model.TargetLocation:
			if t.TargetID != nil && d.LocationID != nil && *t.TargetID == *d.LocationID {
				return true
			}
		}
	}
	return false
}

// RankCampaigns orders campaigns by priority, highest first, then newest first.
func RankCampaigns(cs []model.Campaign) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority > cs[j].Priority
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}

// CampaignCapped reports whether the campaign-level frequency caps are spent.
func CampaignCapped(c *model.Campaign, plays PlayCounts) bool {
	return capReached(c.MaxPlaysPerHour, sum(plays.Hour)) || capReached(c.MaxPlaysPerDay, sum(plays.Day))
}

// PickItem chooses the campaign item to serve, skipping items whose own caps
// are spent. intn must return a value in [0, n). Returns nil when no item is
// eligible.
func PickItem(c *model.Campaign, plays PlayCounts, intn func(n int) int) *model.CampaignItem {
	eligible := make([]*model.CampaignItem, 0, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		if capReached(it.MaxPlaysPerHour, plays.Hour[it.ID]) || capReached(it.MaxPlaysPerDay, plays.Day[it.ID]) {
			continue
		}
		if c.RotationMode == model.RotationPercentage && it.Weight <= 0 {
			continue
		}
		eligible = append(eligible, it)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Position < eligible[j].Position })

	switch c.RotationMode {
	case model.RotationWeighted, model.RotationPercentage:
		total := 0
		for _, it := range eligible {
			total += weightOf(it)
		}
		r := intn(total)
		for _, it := range eligible {
			r -= weightOf(it)
			if r < 0 {
				return it
			}
		}
		return eligible[len(eligible)-1]
	default:
		// Sequential: advance one item per play served today.
		return eligible[int(sum(plays.Day)%int64(len(eligible)))]
	}
}

func weightOf(it *model.CampaignItem) int {
	if it.Weight <= 0 {
		return 1
	}
	return it.Weight
}
