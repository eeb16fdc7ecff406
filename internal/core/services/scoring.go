package services

import (
	"math"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Scoring constants for fused documents.
const (
	typeDiversityStep = 0.05
	typeDiversityCap  = 0.15
	crossSourceBonus  = 0.07

	decayGraceDays = 21
	decayPerWeek   = 0.95
	decayFloor     = 0.6

	scorePrecision = 1e6
)

// TypeDiversityBonus rewards documents matched through several fragment types.
func TypeDiversityBonus(distinctTypes int) float64 {
	if distinctTypes <= 1 {
		return 0
	}
	return math.Min(typeDiversityCap, typeDiversityStep*float64(distinctTypes-1))
}

// CrossSourceBonus rewards documents found by both indexes.
func CrossSourceBonus(lexical, semantic bool) float64 {
	if lexical && semantic {
		return crossSourceBonus
	}
	return 0
}

// DecayFactor returns the recency multiplier for a session date.
// Sessions up to three weeks old keep their score; older ones lose 5% per
// full week beyond that, never dropping below 0.6. Dates that cannot be
// parsed are not decayed.
func DecayFactor(date domain.SessionDate, now time.Time) float64 {
	day, ok := date.Time(now.Location())
	if !ok {
		return 1
	}
	age := AgeDays(day, now)
	if age <= decayGraceDays {
		return 1
	}
	weeks := (age - decayGraceDays) / 7
	return math.Max(decayFloor, math.Pow(decayPerWeek, float64(weeks)))
}

// AgeDays returns the number of calendar days between day and now.
func AgeDays(day, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Round(today.Sub(day).Hours() / 24))
}

// roundScore rounds to six decimals.
func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}
