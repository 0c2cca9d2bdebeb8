package attribution

import (
	"testing"
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan15 = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

// touch builds a touchpoint on an order worth 100 with the given channel and
// ad pk. Options adjust flags and money fields.
func touch(order, channel string, adPK int64, opts ...func(*models.TouchpointEvent)) models.TouchpointEvent {
	tp := models.TouchpointEvent{
		OrderID:        order,
		Channel:        channel,
		EventTimestamp: jan15,
		TotalPrice:     100,
	}
	if adPK != 0 {
		tp.AdPK = adPK
		tp.AdSetPK = adPK * 10
		tp.AdCampaignPK = adPK * 100
	}
	for _, o := range opts {
		o(&tp)
	}
	return tp
}

func first(tp *models.TouchpointEvent)    { tp.IsFirstEventOverall = true }
func last(tp *models.TouchpointEvent)     { tp.IsLastEventOverall = true }
func lastPaid(tp *models.TouchpointEvent) { tp.IsLastPaidEventOverall = true }
func hasPaid(tp *models.TouchpointEvent)  { tp.HasAnyPaidEvents = true }
func paid(tp *models.TouchpointEvent)     { tp.IsPaidChannel = true }

func weightsByOrder(weighted []WeightedTouchpoint) map[string]float64 {
	out := make(map[string]float64)
	for _, wt := range weighted {
		out[wt.Touchpoint.OrderID] += wt.Weight
	}
	return out
}

func TestSelectTouchpoints_FlagModels(t *testing.T) {
	touchpoints := []models.TouchpointEvent{
		touch("o1", "meta-ads", 1, first, hasPaid, paid),
		touch("o1", "google-ads", 2, lastPaid, hasPaid, paid),
		touch("o1", "organic", 0, last, hasPaid),
		// o2 never saw a paid touchpoint.
		touch("o2", "organic", 0, first),
		touch("o2", "email", 0, last),
	}

	tests := []struct {
		name     string
		model    models.AttributionModel
		channels []string
	}{
		{
			name:     "first click",
			model:    models.ModelFirstClick,
			channels: []string{"meta-ads", "organic"},
		},
		{
			name:     "last click",
			model:    models.ModelLastClick,
			channels: []string{"organic", "email"},
		},
		{
			name:     "last paid click falls back per order",
			model:    models.ModelLastPaidClick,
			channels: []string{"google-ads", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weighted, err := SelectTouchpoints(tt.model, touchpoints)
			require.NoError(t, err)

			var got []string
			for _, wt := range weighted {
				assert.Equal(t, 1.0, wt.Weight)
				got = append(got, wt.Touchpoint.Channel)
			}
			assert.Equal(t, tt.channels, got)
		})
	}
}

func TestSelectTouchpoints_UnknownModel(t *testing.T) {
	_, err := SelectTouchpoints("time_decay", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.True(t, IsConfigError(err))
}

func TestSelectTouchpoints_LinearAllWeights(t *testing.T) {
	touchpoints := []models.TouchpointEvent{
		touch("o1", "meta-ads", 1),
		touch("o1", "meta-ads", 1),
		touch("o1", "meta-ads", 2),
		touch("o1", "google-ads", 3),
	}

	weighted, err := SelectTouchpoints(models.ModelLinearAll, touchpoints)
	require.NoError(t, err)
	require.Len(t, weighted, 4)

	// 2 channels; meta-ads has 2 hierarchies; ad 1 repeats twice.
	want := []float64{0.125, 0.125, 0.25, 0.5}
	for i, wt := range weighted {
		assert.InDelta(t, want[i], wt.Weight, 1e-9, "touchpoint %d", i)
		assert.Same(t, &touchpoints[i], wt.Touchpoint)
	}
}

func TestSelectTouchpoints_LinearWeightConservation(t *testing.T) {
	touchpoints := []models.TouchpointEvent{
		touch("o1", "meta-ads", 1, paid),
		touch("o1", "organic", 0),
		touch("o2", "tiktok-ads", 4, paid),
		touch("o2", "tiktok-ads", 5, paid),
		touch("o2", "tiktok-ads", 5, paid),
		touch("o2", "email", 0),
		touch("o2", "email", 0),
		touch("o3", "direct", 0),
	}

	for _, model := range []models.AttributionModel{models.ModelLinearAll, models.ModelLinearPaid} {
		t.Run(string(model), func(t *testing.T) {
			weighted, err := SelectTouchpoints(model, touchpoints)
			require.NoError(t, err)

			for order, sum := range weightsByOrder(weighted) {
				assert.InDelta(t, 1.0, sum, 1e-9, "order %s", order)
			}
			assert.Len(t, weightsByOrder(weighted), 3)
		})
	}
}

func TestSelectTouchpoints_LinearPaidFallback(t *testing.T) {
	touchpoints := []models.TouchpointEvent{
		touch("o1", "meta-ads", 1, paid),
		touch("o1", "organic", 0),
		touch("o1", "google-ads", 2, paid),
		touch("o2", "organic", 0),
		touch("o2", "email", 0),
	}

	weighted, err := SelectTouchpoints(models.ModelLinearPaid, touchpoints)
	require.NoError(t, err)

	byChannel := make(map[string]float64)
	for _, wt := range weighted {
		byChannel[wt.Touchpoint.OrderID+"/"+wt.Touchpoint.Channel] = wt.Weight
	}

	assert.Equal(t, map[string]float64{
		"o1/meta-ads":   0.5,
		"o1/google-ads": 0.5,
		"o2/organic":    0.5,
		"o2/email":      0.5,
	}, byChannel)
}

func TestSelectTouchpoints_Empty(t *testing.T) {
	for _, model := range models.AttributionModels {
		weighted, err := SelectTouchpoints(model, nil)
		require.NoError(t, err)
		assert.Empty(t, weighted, string(model))
	}
}
