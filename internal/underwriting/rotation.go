/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package underwriting

import (
	"sort"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
)

// Score is the fairness key of an ad: plays per unit of weight.
func Score(ad models.SponsorAd) float64 {
	w := ad.Weight
	if w < 1 {
		w = 1
	}
	return float64(ad.PlayCount) / float64(w)
}

// Rank orders ads by ascending score, then by last play with never-played
// ads first. Ties keep input order. The input is not modified.
func Rank(ads []models.SponsorAd) []models.SponsorAd {
	out := make([]models.SponsorAd, len(ads))
	copy(out, ads)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := Score(out[i]), Score(out[j])
		if si != sj {
			return si < sj
		}
		li, lj := out[i].LastPlayedAt, out[j].LastPlayedAt
		switch {
		case li == nil && lj == nil:
			return false
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})
	return out
}

// Assign gives the i-th position the ad at pool[i % len(pool)].
// An empty pool assigns nothing.
func Assign(pool []models.SponsorAd, positions []int) map[int]models.SponsorAd {
	out := make(map[int]models.SponsorAd, len(positions))
	if len(pool) == 0 {
		return out
	}
	for i, pos := range positions {
		out[pos] = pool[i%len(pool)]
	}
	return out
}
