package session

import (
	"testing"

	"github.com/gambitplay/backend/internal/rules"
)

func TestIsTurn(t *testing.T) {
	cases := []struct {
		name        string
		hostIsWhite bool
		mover       rules.Color
		userID      string
		want        bool
	}{
		{"white host moves as white", true, rules.White, "host", true},
		{"white host blocked as black", true, rules.Black, "host", false},
		{"opponent moves as black", true, rules.Black, "opp", true},
		{"opponent blocked as white", true, rules.White, "opp", false},
		{"black host moves as black", false, rules.Black, "host", true},
		{"black host blocked as white", false, rules.White, "host", false},
		{"opponent moves as white", false, rules.White, "opp", true},
		{"opponent blocked as black", false, rules.Black, "opp", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &Session{MatchID: "m1", HostID: "host", OpponentID: "opp", HostIsWhite: tc.hostIsWhite}
			if got := IsTurn(tc.userID, sess, tc.mover); got != tc.want {
				t.Fatalf("IsTurn(%s, hostIsWhite=%v, mover=%s) = %v, want %v",
					tc.userID, tc.hostIsWhite, tc.mover, got, tc.want)
			}
		})
	}
}
