package rating

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUpdateEqualRatings(t *testing.T) {
	if got := Update(1200, 1200, Win); !almostEqual(got, 1216) {
		t.Fatalf("win between equals: expected 1216, got %f", got)
	}
	if got := Update(1200, 1200, Loss); !almostEqual(got, 1184) {
		t.Fatalf("loss between equals: expected 1184, got %f", got)
	}
	if got := Update(1200, 1200, Draw); !almostEqual(got, 1200) {
		t.Fatalf("draw between equals: expected 1200, got %f", got)
	}
}

func TestUpdateZeroSum(t *testing.T) {
	ratings := [][2]float64{{1200, 1200}, {1500, 1100}, {900, 2100}}
	for _, r := range ratings {
		gain := Update(r[0], r[1], Win) - r[0]
		loss := Update(r[1], r[0], Loss) - r[1]
		if !almostEqual(gain+loss, 0) {
			t.Errorf("gain %f and loss %f do not cancel for %v", gain, loss, r)
		}
	}
}

func TestUpdateFavorsUpset(t *testing.T) {
	underdog := Update(1100, 1500, Win) - 1100
	favorite := Update(1500, 1100, Win) - 1500
	if underdog <= favorite {
		t.Fatalf("beating a stronger opponent should pay more: %f vs %f", underdog, favorite)
	}
	if underdog <= 0 || underdog > KFactor {
		t.Fatalf("gain out of range: %f", underdog)
	}
}
