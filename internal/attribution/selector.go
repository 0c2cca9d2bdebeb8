package attribution

import (
	"fmt"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// WeightedTouchpoint is a touchpoint that receives credit under a model.
type WeightedTouchpoint struct {
	Touchpoint *models.TouchpointEvent
	Weight     float64
}

// SelectTouchpoints decides which touchpoints count under model and with what
// weight. Output preserves input order. Weights are computed over the whole
// slice, so callers must pass the order's full window set, not a level-filtered one.
func SelectTouchpoints(model models.AttributionModel, touchpoints []models.TouchpointEvent) ([]WeightedTouchpoint, error) {
	switch model {
	case models.ModelFirstClick:
		return selectFlagged(touchpoints, func(t *models.TouchpointEvent) bool {
			return t.IsFirstEventOverall
		}), nil
	case models.ModelLastClick:
		return selectFlagged(touchpoints, func(t *models.TouchpointEvent) bool {
			return t.IsLastEventOverall
		}), nil
	case models.ModelLastPaidClick:
		// Each order decides on its own paid history.
		return selectFlagged(touchpoints, func(t *models.TouchpointEvent) bool {
			if t.HasAnyPaidEvents {
				return t.IsLastPaidEventOverall
			}
			return t.IsLastEventOverall
		}), nil
	case models.ModelLinearAll:
		return selectLinear(touchpoints, false), nil
	case models.ModelLinearPaid:
		return selectLinear(touchpoints, true), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}

func selectFlagged(touchpoints []models.TouchpointEvent, include func(*models.TouchpointEvent) bool) []WeightedTouchpoint {
	out := make([]WeightedTouchpoint, 0, len(touchpoints))
	for i := range touchpoints {
		tp := &touchpoints[i]
		if include(tp) {
			out = append(out, WeightedTouchpoint{Touchpoint: tp, Weight: 1})
		}
	}
	return out
}

// selectLinear splits each order's credit equally across channels, then across
// ad hierarchies within a channel, then across repeated touchpoints of the same
// hierarchy. With paidOnly, an order that has paid touchpoints in the window
// only credits those; an order without any falls back to its full set.
func selectLinear(touchpoints []models.TouchpointEvent, paidOnly bool) []WeightedTouchpoint {
	weights := make([]float64, len(touchpoints))
	selected := make([]bool, len(touchpoints))

	for _, idxs := range indexByOrder(touchpoints) {
		candidates := idxs
		if paidOnly {
			paid := make([]int, 0, len(idxs))
			for _, i := range idxs {
				if touchpoints[i].IsPaidChannel {
					paid = append(paid, i)
				}
			}
			if len(paid) > 0 {
				candidates = paid
			}
		}

		for j, w := range linearWeights(touchpoints, candidates) {
			i := candidates[j]
			weights[i] = w
			selected[i] = true
		}
	}

	out := make([]WeightedTouchpoint, 0, len(touchpoints))
	for i := range touchpoints {
		if selected[i] {
			out = append(out, WeightedTouchpoint{Touchpoint: &touchpoints[i], Weight: weights[i]})
		}
	}
	return out
}

type channelHierarchy struct {
	channel   string
	hierarchy models.AdHierarchy
}

// linearWeights returns the weight of each index in idxs, aligned with idxs.
// All three divisors are partition counts over idxs as a whole.
func linearWeights(touchpoints []models.TouchpointEvent, idxs []int) []float64 {
	channels := make(map[string]map[models.AdHierarchy]struct{})
	repeats := make(map[channelHierarchy]int)

	for _, i := range idxs {
		tp := &touchpoints[i]
		h := tp.Hierarchy()
		if channels[tp.Channel] == nil {
			channels[tp.Channel] = make(map[models.AdHierarchy]struct{})
		}
		channels[tp.Channel][h] = struct{}{}
		repeats[channelHierarchy{channel: tp.Channel, hierarchy: h}]++
	}

	out := make([]float64, len(idxs))
	for j, i := range idxs {
		tp := &touchpoints[i]
		h := tp.Hierarchy()
		w := 1 / float64(len(channels))
		w *= 1 / float64(len(channels[tp.Channel]))
		w *= 1 / float64(repeats[channelHierarchy{channel: tp.Channel, hierarchy: h}])
		out[j] = w
	}
	return out
}

// indexByOrder groups touchpoint indexes by order id, in first-seen order.
func indexByOrder(touchpoints []models.TouchpointEvent) [][]int {
	pos := make(map[string]int)
	var groups [][]int
	for i := range touchpoints {
		id := touchpoints[i].OrderID
		p, ok := pos[id]
		if !ok {
			p = len(groups)
			pos[id] = p
			groups = append(groups, nil)
		}
		groups[p] = append(groups[p], i)
	}
	return groups
}
