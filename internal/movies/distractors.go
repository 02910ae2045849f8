package movies

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"quiz-portal/internal/domain"
)

const (
	MinRating = 1.0
	MaxRating = 10.0

	// DefaultTolerance is the accepted distance for typed rating answers.
	DefaultTolerance = 0.2

	// attemptsPerValue bounds the rejection sampling loop.
	attemptsPerValue = 1000
)

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampRating(v float64) float64 {
	return math.Max(MinRating, math.Min(MaxRating, v))
}

// tenths converts a one-decimal rating to an integer key so equality is exact.
func tenths(v float64) int {
	return int(math.Round(v * 10))
}

// GenerateDistractors returns count distinct plausible wrong ratings within
// ±spread of correct, clamped to [1.0, 10.0] and rounded to one decimal.
func GenerateDistractors(rng *rand.Rand, correct float64, count int, spread float64) ([]float64, error) {
	if count <= 0 {
		return nil, nil
	}
	correct = Round1(correct)

	lo := tenths(clampRating(correct - spread))
	hi := tenths(clampRating(correct + spread))
	available := hi - lo + 1
	if c := tenths(correct); c >= lo && c <= hi {
		available--
	}
	if available < count {
		return nil, fmt.Errorf("%w: %d requested, %d possible around %.1f", domain.ErrDistractorsExhausted, count, available, correct)
	}

	seen := map[int]struct{}{tenths(correct): {}}
	out := make([]float64, 0, count)
	for attempts := 0; len(out) < count; attempts++ {
		if attempts >= count*attemptsPerValue {
			return nil, fmt.Errorf("%w: gave up after %d attempts", domain.ErrDistractorsExhausted, attempts)
		}
		deviation := (rng.Float64()*2 - 1) * spread
		candidate := Round1(clampRating(correct + deviation))
		key := tenths(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out, nil
}

// CheckAnswer reports whether user is within tolerance of correct.
// Any non-numeric input fails closed.
func CheckAnswer(user, correct string, tolerance float64) bool {
	u, err := ParseRating(user)
	if err != nil {
		return false
	}
	c, err := ParseRating(correct)
	if err != nil {
		return false
	}
	// 1e-9 absorbs binary float error at the boundary (8.0 - 7.8 > 0.2 in float64).
	return math.Abs(u-c) <= tolerance+1e-9
}

// ParseRating reads a typed number, accepting a decimal comma.
func ParseRating(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(raw, ",", ".")), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("rating %q is not finite", raw)
	}
	return v, nil
}

// NormalizeRating parses a rating answer key and returns its canonical form.
// Values outside [MinRating, MaxRating] are rejected.
func NormalizeRating(raw string) (string, error) {
	v, err := ParseRating(raw)
	if err != nil {
		return "", err
	}
	if v < MinRating || v > MaxRating {
		return "", fmt.Errorf("rating %s out of range", strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// FormatRating renders a rating the way it is shown and stored.
func FormatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
