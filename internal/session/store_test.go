package session

import (
	"errors"
	"testing"

	"github.com/gambitplay/backend/internal/rules"
)

func TestStoreCreateGetRemove(t *testing.T) {
	st := NewStore()
	sess := &Session{MatchID: "m1", HostID: "host", OpponentID: "opp", State: rules.NewState()}

	if err := st.Create(sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", st.Count())
	}

	got, ok := st.Get("m1")
	if !ok || got != sess {
		t.Fatal("Get did not return the stored session")
	}
	if _, ok := st.Get("m2"); ok {
		t.Fatal("Get returned a session for an unknown match")
	}

	st.Remove("m1")
	if _, ok := st.Get("m1"); ok {
		t.Fatal("session still present after Remove")
	}
	if st.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", st.Count())
	}
}

func TestStoreRejectsDuplicate(t *testing.T) {
	st := NewStore()
	if err := st.Create(&Session{MatchID: "m1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Create(&Session{MatchID: "m1"}); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestSessionParticipants(t *testing.T) {
	sess := &Session{MatchID: "m1", HostID: "host", OpponentID: "opp", HostIsWhite: true}

	if !sess.Participant("host") || !sess.Participant("opp") {
		t.Fatal("participants not recognized")
	}
	if sess.Participant("stranger") {
		t.Fatal("non-participant recognized")
	}

	if other, ok := sess.Opponent("host"); !ok || other != "opp" {
		t.Fatalf("Opponent(host) = %q, %v", other, ok)
	}
	if other, ok := sess.Opponent("opp"); !ok || other != "host" {
		t.Fatalf("Opponent(opp) = %q, %v", other, ok)
	}
	if _, ok := sess.Opponent("stranger"); ok {
		t.Fatal("Opponent accepted a non-participant")
	}

	if sess.ColorOf("host") != rules.White || sess.ColorOf("opp") != rules.Black {
		t.Fatal("wrong color assignment with white host")
	}

	sess.HostIsWhite = false
	if sess.ColorOf("host") != rules.Black || sess.ColorOf("opp") != rules.White {
		t.Fatal("wrong color assignment with black host")
	}
}
