package rating

import "math"

// KFactor controls how far a single result moves a rating.
const KFactor = 32

// Score of a finished game from the perspective of the rated player.
type Score float64

const (
	Loss Score = 0
	Draw Score = 0.5
	Win  Score = 1
)

// Update returns the player's new Elo rating given the opponent's rating and
// the game result. Pure function; callers persist the value.
func Update(self, opponent float64, score Score) float64 {
	expected := 1 / (1 + math.Pow(10, (opponent-self)/400))
	return self + KFactor*(float64(score)-expected)
}
