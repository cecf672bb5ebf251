package agent

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/nils-braun/hanabi/engine"
)

// play runs a full game with c choosing for every seat and returns it.
func play(t *testing.T, c Chooser, players int, seed uint64) *engine.Game {
	t.Helper()
	g, err := engine.NewGame(players, engine.DefaultStartFailures, engine.DefaultStartHints, seed)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	_ = g.Start()
	tr, _ := NewTracker(g.Deck, g.Rules)

	for steps := 0; g.Status == engine.StatusStarted; steps++ {
		if steps > 500 {
			t.Fatalf("seed %d: game did not end", seed)
		}
		player := tr.State().CurrentPlayer()
		id, err := c.Choose(tr, player)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		committed, err := g.Commit(player, id)
		if err != nil {
			t.Fatalf("Commit(%d): %v", id, err)
		}
		if err := tr.Observe(committed); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	return g
}

// TestHeuristicNeverMisplays verifies the heuristic only plays cards it knows fit.
func TestHeuristicNeverMisplays(t *testing.T) {
	for players := engine.MinPlayers; players <= engine.MaxPlayers; players++ {
		for seed := uint64(1); seed <= 20; seed++ {
			g := play(t, Heuristic{}, players, seed)
			for _, turn := range g.Log {
				if turn.Type == engine.TurnPut && !turn.PutCorrect {
					t.Fatalf("p=%d seed=%d: misplay %s", players, seed, turn)
				}
			}
			s, _ := g.State()
			if s.Failures != engine.DefaultStartFailures {
				t.Errorf("p=%d seed=%d: failures %d", players, seed, s.Failures)
			}
		}
	}
}

func TestHeuristicPlaysKnownCard(t *testing.T) {
	tr := smallTracker(t)
	observe(t, tr, hintTo(1, engine.ValueHint(1)))

	// p1 knows B1 is a one and every stack is empty.
	id, err := Heuristic{}.Choose(tr, 1)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	got := tr.State().PossibleTurns(1)[id]
	if got.Type != engine.TurnPut || got.Card() != b1 {
		t.Errorf("Choose = %s, want put of B1", got)
	}
}

func TestHeuristicHintsPlayableCard(t *testing.T) {
	tr := smallTracker(t)
	id, err := Heuristic{}.Choose(tr, 0)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	got := tr.State().PossibleTurns(0)[id]
	if got.Type != engine.TurnHint || got.Target != 1 || got.Hint != engine.ValueHint(1) {
		t.Errorf("Choose = %s, want value-1 hint to p1", got)
	}
}

func TestHeuristicDiscardsOldest(t *testing.T) {
	tr := smallTracker(t)
	observe(t, tr, hintTo(1, engine.ColorHint(engine.ColorWhite))) // p1 learns W3 is white
	observe(t, tr, hintTo(0, engine.ValueHint(2)))                 // no tokens left

	// Neither of p0's cards is known playable or useless and both were
	// touched by the hint, so the oldest goes.
	id, err := Heuristic{}.Choose(tr, 0)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	got := tr.State().PossibleTurns(0)[id]
	if got.Type != engine.TurnDestroy || got.Card() != g1 {
		t.Errorf("Choose = %s, want destroy of G1", got)
	}
}

func TestChooseOutOfTurn(t *testing.T) {
	tr := smallTracker(t)
	if _, err := (Heuristic{}).Choose(tr, 1); !errors.Is(err, ErrNoTurns) {
		t.Errorf("Heuristic error = %v, want ErrNoTurns", err)
	}
	r := Random{Rand: rand.New(rand.NewPCG(1, 2))}
	if _, err := r.Choose(tr, 1); !errors.Is(err, ErrNoTurns) {
		t.Errorf("Random error = %v, want ErrNoTurns", err)
	}
}

func TestRandomPlaysToTheEnd(t *testing.T) {
	r := Random{Rand: rand.New(rand.NewPCG(3, 4))}
	g := play(t, r, 3, 9)
	if !g.Status.IsTerminal() {
		t.Errorf("Status = %s, want terminal", g.Status)
	}
}

// TestHeuristicEmptyHand covers a seat with no cards and nothing to hint.
func TestHeuristicEmptyHand(t *testing.T) {
	rules := engine.Rules{NumPlayers: 2, CardsPerPlayer: 1, StartHints: 1, StartFailures: 3}
	tr, err := NewTracker([]engine.Card{g1, b1}, rules)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	isDestroy := func(p engine.Turn) bool { return p.Type == engine.TurnDestroy }
	observe(t, tr, isDestroy)
	observe(t, tr, isDestroy)

	id, err := (Heuristic{}).Choose(tr, 0)
	if !errors.Is(err, ErrNoTurns) {
		t.Errorf("Choose = %d, %v; want ErrNoTurns", id, err)
	}
}
