package chapters

import (
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
)

const (
	DefaultMinDuration = 10.0
	DefaultMinCount    = 3
)

// Validator enforces chapter rules: first marker at 0:00, minimum spacing, minimum count
type Validator struct {
	minDuration float64
	minCount    int
}

func NewValidator(minDuration float64, minCount int) *Validator {
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}
	if minCount <= 0 {
		minCount = DefaultMinCount
	}
	return &Validator{minDuration: minDuration, minCount: minCount}
}

// Validate returns a cleaned copy of markers, or nil when fewer than the minimum survive.
// totalDuration bounds the last marker; pass 0 when unknown and the last marker is kept.
func (v *Validator) Validate(markers []models.Marker, totalDuration float64) []models.Marker {
	if len(markers) == 0 {
		return nil
	}

	list := models.Clone(markers)
	models.SortMarkers(list)

	if list[0].StartSeconds > 0 {
		lead := models.Marker{StartSeconds: 0, Title: list[0].Title, Body: list[0].Body}
		list = append([]models.Marker{lead}, list...)
	}
	models.Renumber(list)

	kept := list[:1:1]
	for i := 1; i < len(list); i++ {
		next := totalDuration
		if i+1 < len(list) {
			next = list[i+1].StartSeconds
		} else if totalDuration <= 0 {
			next = list[i].StartSeconds + v.minDuration
		}

		if next-list[i].StartSeconds < v.minDuration {
			continue
		}
		if list[i].StartSeconds-kept[len(kept)-1].StartSeconds < v.minDuration {
			continue
		}
		kept = append(kept, list[i])
	}

	if len(kept) < v.minCount {
		return nil
	}

	end := totalDuration
	if end <= 0 {
		end = kept[len(kept)-1].StartSeconds + v.minDuration
	}
	models.RecomputeEnds(kept, end)
	models.Renumber(kept)
	return kept
}
