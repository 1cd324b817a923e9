// Package scoring turns Dedimania ranks into leaderboard points.
package scoring

import (
	"math"
	"sort"
)

// Default point values by rank.
const (
	defaultWinPoints     = 5
	defaultPodiumPoints  = 3
	defaultTopFivePoints = 2
	defaultBasePoints    = 1

	// defaultUnknownMultiplier applies when a track's record count is unknown.
	defaultUnknownMultiplier = 0.5
)

// Points maps rank brackets to points.
type Points struct {
	Win     float64 // rank 1
	Podium  float64 // ranks 2-3
	TopFive float64 // ranks 4-5
	Base    float64 // any other rank or unranked
}

// Tier is a competition bracket: tracks with fewer than Below records get
// Multiplier. Below 0 marks the catch-all tier.
type Tier struct {
	Below      int
	Multiplier float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPoints overrides the rank points.
func WithPoints(p Points) Option {
	return func(s *Scorer) {
		if p.Win > 0 && p.Podium > 0 && p.TopFive > 0 && p.Base > 0 {
			s.points = p
		}
	}
}

// WithMultiplierTiers overrides the competition tiers. Tiers are sorted by
// Below; a tier with Below <= 0 becomes the catch-all.
func WithMultiplierTiers(tiers []Tier, catchAll float64) Option {
	return func(s *Scorer) {
		if len(tiers) == 0 || catchAll <= 0 {
			return
		}
		cp := make([]Tier, 0, len(tiers))
		for _, t := range tiers {
			if t.Below > 0 && t.Multiplier > 0 {
				cp = append(cp, t)
			}
		}
		sort.Slice(cp, func(i, j int) bool { return cp[i].Below < cp[j].Below })
		s.tiers = cp
		s.catchAll = catchAll
	}
}

// WithUnknownMultiplier sets the weight for tracks without a record count.
func WithUnknownMultiplier(m float64) Option {
	return func(s *Scorer) {
		if m > 0 {
			s.unknown = m
		}
	}
}

// Scorer computes weighted points for records. It is immutable after New and
// safe for concurrent use.
type Scorer struct {
	points   Points
	tiers    []Tier
	catchAll float64
	unknown  float64
}

// New creates a scorer with the Dedimania defaults.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		points: Points{
			Win:     defaultWinPoints,
			Podium:  defaultPodiumPoints,
			TopFive: defaultTopFivePoints,
			Base:    defaultBasePoints,
		},
		// A lone record is almost free, so it weighs least.
		tiers: []Tier{
			{Below: 2, Multiplier: 0.1},
			{Below: 5, Multiplier: 0.2},
			{Below: 10, Multiplier: 0.4},
			{Below: 15, Multiplier: 0.6},
			{Below: 20, Multiplier: 0.8},
		},
		catchAll: 1.0,
		unknown:  defaultUnknownMultiplier,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RankPoints returns the unweighted points for a rank. Zero or negative
// ranks are unranked.
func (s *Scorer) RankPoints(rank int) float64 {
	switch {
	case rank == 1:
		return s.points.Win
	case rank == 2 || rank == 3:
		return s.points.Podium
	case rank == 4 || rank == 5:
		return s.points.TopFive
	default:
		return s.points.Base
	}
}

// Multiplier returns the competition weight for a track with total records.
// known is false when no challenge metadata exists.
func (s *Scorer) Multiplier(total int, known bool) float64 {
	if !known || total <= 0 {
		return s.unknown
	}
	for _, t := range s.tiers {
		if total < t.Below {
			return t.Multiplier
		}
	}
	return s.catchAll
}

// Score is RankPoints weighted by Multiplier.
func (s *Scorer) Score(rank, total int, known bool) float64 {
	return s.RankPoints(rank) * s.Multiplier(total, known)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
