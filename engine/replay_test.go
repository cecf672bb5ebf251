package engine

import (
	"errors"
	"sort"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newFixtureGame returns a started 2-player game dealing one card each from
// the given deck, with 3 failures and 10 hints.
func newFixtureGame(deck ...Card) *Game {
	return &Game{
		Deck:   deck,
		Rules:  Rules{NumPlayers: 2, CardsPerPlayer: 1, StartHints: 10, StartFailures: 3},
		Status: StatusStarted,
	}
}

// scenarioDeck is C0#1#0, C1#1#0, C2#1#0, C0#1#1.
func scenarioDeck() []Card {
	return []Card{NewCard(0, 1, 0), NewCard(1, 1, 0), NewCard(2, 1, 0), NewCard(0, 1, 1)}
}

func mustState(t *testing.T, g *Game) *State {
	t.Helper()
	s, err := g.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return s
}

// mustCommit commits the current player's proposal selected by match.
func mustCommit(t *testing.T, g *Game, match func(Turn) bool) Turn {
	t.Helper()
	s := mustState(t, g)
	for _, p := range s.PossibleTurns(s.CurrentPlayer()) {
		if match(p) {
			committed, err := g.CommitTurn(p)
			if err != nil {
				t.Fatalf("CommitTurn(%s): %v", p, err)
			}
			return committed
		}
	}
	t.Fatalf("no matching proposal for p%d", s.CurrentPlayer())
	return Turn{}
}

func mustPut(t *testing.T, g *Game, c Card) Turn {
	t.Helper()
	return mustCommit(t, g, func(p Turn) bool { return p.Type == TurnPut && p.Card() == c })
}

func mustDestroy(t *testing.T, g *Game, c Card) Turn {
	t.Helper()
	return mustCommit(t, g, func(p Turn) bool { return p.Type == TurnDestroy && p.Card() == c })
}

// mustHint commits a hint to target about h, or its negation if the target
// holds no matching card.
func mustHint(t *testing.T, g *Game, target uint8, h Hint) Turn {
	t.Helper()
	return mustCommit(t, g, func(p Turn) bool {
		return p.Type == TurnHint && p.Target == target && (p.Hint == h || p.Hint == h.Negate())
	})
}

func sortedCards(cards []Card) []Card {
	out := append([]Card(nil), cards...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ---------------------------------------------------------------------------
// Deal and replay
// ---------------------------------------------------------------------------

func TestReplayDeal(t *testing.T) {
	g := newFixtureGame(scenarioDeck()...)
	s := mustState(t, g)

	if got := s.Hand(0); !equalCards(got, []Card{NewCard(0, 1, 0)}) {
		t.Errorf("hand p0 = %v, want [C0#1#0]", got)
	}
	if got := s.Hand(1); !equalCards(got, []Card{NewCard(1, 1, 0)}) {
		t.Errorf("hand p1 = %v, want [C1#1#0]", got)
	}
	next, ok := s.NextUndealtCard()
	if !ok || next != NewCard(2, 1, 0) {
		t.Errorf("NextUndealtCard = %s, %v; want C2#1#0", next, ok)
	}
	if s.TurnNumber != 0 || s.CurrentPlayer() != 0 {
		t.Errorf("TurnNumber = %d, CurrentPlayer = %d; want 0, 0", s.TurnNumber, s.CurrentPlayer())
	}
	if s.Hints != 10 || s.Failures != 3 {
		t.Errorf("Hints = %d, Failures = %d; want 10, 3", s.Hints, s.Failures)
	}
}

// TestReplayRoundRobinDeal verifies one card per player per round.
func TestReplayRoundRobinDeal(t *testing.T) {
	deck := OrderedDeck()
	rules, _ := DefaultRules(3)
	s, err := Replay(deck, rules, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for p := uint8(0); p < 3; p++ {
		hand := s.Hand(p)
		if len(hand) != 4 {
			t.Fatalf("p%d holds %d cards, want 4", p, len(hand))
		}
		for r, c := range hand {
			if want := deck[r*3+int(p)]; c != want {
				t.Errorf("p%d card %d = %s, want %s", p, r, c, want)
			}
		}
	}
	if s.NextCard != 12 || s.DeckLen() != DeckSize-12 {
		t.Errorf("NextCard = %d, DeckLen = %d", s.NextCard, s.DeckLen())
	}
}

// TestReplayHandsFollowTurns replays the draw sequence: hints leave hands
// alone, puts and destroys draw the next card until the deck runs out.
func TestReplayHandsFollowTurns(t *testing.T) {
	g := newFixtureGame(scenarioDeck()...)

	// p0 hints p1: nothing changes.
	mustHint(t, g, 1, ColorHint(ColorBlue))
	s := mustState(t, g)
	if !equalCards(s.Hand(0), []Card{NewCard(0, 1, 0)}) || !equalCards(s.Hand(1), []Card{NewCard(1, 1, 0)}) {
		t.Fatalf("hint changed hands: %v %v", s.Hand(0), s.Hand(1))
	}
	if next, _ := s.NextUndealtCard(); next != NewCard(2, 1, 0) {
		t.Fatalf("NextUndealtCard = %s after hint, want C2#1#0", next)
	}

	// p1 puts C1#1#0 and draws C2#1#0.
	put := mustPut(t, g, NewCard(1, 1, 0))
	if !put.PutCorrect {
		t.Error("C1#1#0 on an empty stack should be correct")
	}
	s = mustState(t, g)
	if !equalCards(s.Hand(1), []Card{NewCard(2, 1, 0)}) {
		t.Fatalf("hand p1 = %v, want [C2#1#0]", s.Hand(1))
	}
	if s.Stacks[ColorBlue] != 1 {
		t.Errorf("Stacks[blue] = %d, want 1", s.Stacks[ColorBlue])
	}

	// p0 destroys C0#1#0 and draws the last card.
	mustDestroy(t, g, NewCard(0, 1, 0))
	s = mustState(t, g)
	if !equalCards(s.Hand(0), []Card{NewCard(0, 1, 1)}) {
		t.Fatalf("hand p0 = %v, want [C0#1#1]", s.Hand(0))
	}
	if _, ok := s.NextUndealtCard(); ok {
		t.Error("deck should be exhausted")
	}

	// p1 destroys with nothing left to draw.
	last := mustDestroy(t, g, NewCard(2, 1, 0))
	if !last.LastCardDrawn {
		t.Error("turn taken on an empty deck must be flagged LastCardDrawn")
	}
	s = mustState(t, g)
	if len(s.Hand(1)) != 0 {
		t.Errorf("hand p1 = %v, want empty", s.Hand(1))
	}
	if !equalCards(s.Hand(0), []Card{NewCard(0, 1, 1)}) {
		t.Errorf("hand p0 = %v, want [C0#1#1]", s.Hand(0))
	}
}

// TestReplayCorrectPutAdvancesStack covers a first-turn
// correct put: stack advances and the player draws the next undealt card.
func TestReplayCorrectPutAdvancesStack(t *testing.T) {
	g := newFixtureGame(scenarioDeck()...)
	mustPut(t, g, NewCard(0, 1, 0))

	s := mustState(t, g)
	if s.Stacks[ColorGreen] != 1 {
		t.Errorf("Stacks[green] = %d, want 1", s.Stacks[ColorGreen])
	}
	if !equalCards(s.Hand(0), []Card{NewCard(2, 1, 0)}) {
		t.Errorf("hand p0 = %v, want [C2#1#0]", s.Hand(0))
	}
	if next, ok := s.NextUndealtCard(); !ok || next != NewCard(0, 1, 1) {
		t.Errorf("NextUndealtCard = %s, %v; want C0#1#1", next, ok)
	}
	if s.CardFits(NewCard(0, 1, 1)) {
		t.Error("second green one must not fit")
	}
	if !s.CardFits(NewCard(0, 2, 0)) {
		t.Error("green two must fit")
	}
}

func TestReplayFailures(t *testing.T) {
	g := newFixtureGame(NewCard(0, 2, 0), NewCard(1, 1, 0), NewCard(2, 1, 0), NewCard(0, 1, 1))
	if s := mustState(t, g); s.Failures != 3 {
		t.Fatalf("Failures = %d, want 3", s.Failures)
	}

	wrong := mustPut(t, g, NewCard(0, 2, 0))
	if wrong.PutCorrect {
		t.Fatal("green two on an empty stack must be incorrect")
	}
	if s := mustState(t, g); s.Failures != 2 {
		t.Fatalf("Failures after wrong put = %d, want 2", s.Failures)
	}

	mustDestroy(t, g, NewCard(1, 1, 0))
	if s := mustState(t, g); s.Failures != 2 {
		t.Errorf("Failures after destroy = %d, want 2", s.Failures)
	}
}

func TestReplayHints(t *testing.T) {
	g := newFixtureGame(scenarioDeck()...)
	mustHint(t, g, 1, ValueHint(1))
	if s := mustState(t, g); s.Hints != 9 {
		t.Fatalf("Hints after hint = %d, want 9", s.Hints)
	}

	destroy := mustDestroy(t, g, NewCard(1, 1, 0))
	if !destroy.HintRestored {
		t.Fatal("destroy below the start budget must restore a hint")
	}
	if s := mustState(t, g); s.Hints != 10 {
		t.Fatalf("Hints after destroy = %d, want 10", s.Hints)
	}

	// At the start budget a destroy restores nothing.
	destroy = mustDestroy(t, g, NewCard(0, 1, 0))
	if destroy.HintRestored {
		t.Error("destroy at the start budget must not restore a hint")
	}
	if s := mustState(t, g); s.Hints != 10 {
		t.Errorf("Hints = %d, want 10", s.Hints)
	}
}

// fiveDeck lets two players (one card each) build the green stack in order.
func fiveDeck() []Card {
	return []Card{
		NewCard(0, 1, 0), NewCard(0, 2, 0), NewCard(0, 3, 0), NewCard(0, 4, 0),
		NewCard(0, 5, 0), NewCard(1, 1, 0), NewCard(1, 1, 1), NewCard(1, 1, 2),
	}
}

func TestReplayFiveRestoresHint(t *testing.T) {
	g := newFixtureGame(fiveDeck()...)
	mustHint(t, g, 1, ColorHint(ColorGreen))
	mustHint(t, g, 0, ColorHint(ColorGreen))
	for v := uint8(1); v <= 4; v++ {
		mustPut(t, g, NewCard(0, v, 0))
	}
	before := mustState(t, g)
	if before.Hints != 8 || before.Stacks[ColorGreen] != 4 {
		t.Fatalf("Hints = %d, Stacks[green] = %d; want 8, 4", before.Hints, before.Stacks[ColorGreen])
	}

	five := mustPut(t, g, NewCard(0, 5, 0))
	if !five.PutCorrect || !five.HintRestored {
		t.Fatalf("five put = %+v, want correct and restoring", five)
	}
	after := mustState(t, g)
	if after.Hints != before.Hints+1 {
		t.Errorf("Hints = %d, want %d", after.Hints, before.Hints+1)
	}
	if after.Stacks[ColorGreen] != 5 {
		t.Errorf("Stacks[green] = %d, want 5", after.Stacks[ColorGreen])
	}
}

// TestReplayFiveRestoreCapped verifies a five never lifts hints above the start budget.
func TestReplayFiveRestoreCapped(t *testing.T) {
	g := newFixtureGame(fiveDeck()...)
	for v := uint8(1); v <= 4; v++ {
		mustPut(t, g, NewCard(0, v, 0))
	}
	five := mustPut(t, g, NewCard(0, 5, 0))
	if !five.PutCorrect {
		t.Fatal("five must fit")
	}
	if five.HintRestored {
		t.Error("five at the start budget must not restore")
	}
	if s := mustState(t, g); s.Hints != 10 {
		t.Errorf("Hints = %d, want 10", s.Hints)
	}
}

func TestCardGeneratesHint(t *testing.T) {
	if CardGeneratesHint(NewCard(ColorBlue, 1, 0)) {
		t.Error("a one must not generate a hint")
	}
	if !CardGeneratesHint(NewCard(ColorBlue, 5, 0)) {
		t.Error("a five must generate a hint")
	}
}

// ---------------------------------------------------------------------------
// Corrupt logs
// ---------------------------------------------------------------------------

func TestReplayCorruptLog(t *testing.T) {
	deck := scenarioDeck()
	rules := Rules{NumPlayers: 2, CardsPerPlayer: 1, StartHints: 10, StartFailures: 3}
	put := Turn{Number: 0, Type: TurnPut, Actor: 0, Cards: []Card{NewCard(0, 1, 0)}, PutCorrect: true}

	cases := map[string][]Turn{
		"number gap": {func() Turn { x := put; x.Number = 1; return x }()},
		"out of turn": {func() Turn {
			x := put
			x.Actor = 1
			x.Cards = []Card{NewCard(1, 1, 0)}
			return x
		}()},
		"card not held":  {func() Turn { x := put; x.Cards = []Card{NewCard(1, 1, 0)}; return x }()},
		"flag mismatch":  {func() Turn { x := put; x.PutCorrect = false; return x }()},
		"unknown type":   {func() Turn { x := put; x.Type = TurnType(9); return x }()},
		"hint self":      {{Number: 0, Type: TurnHint, Actor: 0, Target: 0, Hint: ColorHint(0), Cards: []Card{NewCard(0, 1, 0)}}},
		"hint bad cards": {{Number: 0, Type: TurnHint, Actor: 0, Target: 1, Hint: ColorHint(1), Cards: []Card{NewCard(0, 1, 0)}}},
		"hint negated while matching": {{Number: 0, Type: TurnHint, Actor: 0, Target: 1, Hint: NotColorHint(1), Cards: []Card{NewCard(1, 1, 0)}}},
	}
	for name, log := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Replay(deck, rules, log); !errors.Is(err, ErrCorruptTurnLog) {
				t.Errorf("Replay error = %v, want ErrCorruptTurnLog", err)
			}
		})
	}

	if _, err := Replay(deck, rules, []Turn{put}); err != nil {
		t.Errorf("valid log rejected: %v", err)
	}
}

func TestReplayInvalidSetup(t *testing.T) {
	rules := Rules{NumPlayers: 2, CardsPerPlayer: 3, StartHints: 10, StartFailures: 3}
	if _, err := Replay(scenarioDeck(), rules, nil); !errors.Is(err, ErrInvalidDeck) {
		t.Errorf("short deck error = %v, want ErrInvalidDeck", err)
	}
	rules.NumPlayers = 1
	if _, err := Replay(OrderedDeck(), rules, nil); !errors.Is(err, ErrInvalidPlayerCount) {
		t.Errorf("one player error = %v, want ErrInvalidPlayerCount", err)
	}
}

// ---------------------------------------------------------------------------
// Invariants over whole games
// ---------------------------------------------------------------------------

// playRandom commits pseudo-random proposals until the game ends, calling
// check after every commit.
func playRandom(t *testing.T, g *Game, seed uint64, check func(*State)) {
	t.Helper()
	rng := xorshift(seed)
	for steps := 0; g.Status == StatusStarted; steps++ {
		if steps > 500 {
			t.Fatal("game did not terminate")
		}
		s := mustState(t, g)
		turns := s.PossibleTurns(s.CurrentPlayer())
		if len(turns) == 0 {
			t.Fatalf("no proposals for p%d at turn %d", s.CurrentPlayer(), s.TurnNumber)
		}
		if _, err := g.Commit(s.CurrentPlayer(), int(rng.randN(uint64(len(turns))))); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		check(mustState(t, g))
	}
}

// TestCardConservation verifies hands, removed cards and undealt cards always
// partition the start deck.
func TestCardConservation(t *testing.T) {
	for players := 2; players <= 4; players++ {
		for seed := uint64(1); seed <= 5; seed++ {
			g, err := NewGame(players, 3, 8, seed)
			if err != nil {
				t.Fatalf("NewGame: %v", err)
			}
			_ = g.Start()
			want := sortedCards(g.Deck)

			playRandom(t, g, seed*31, func(s *State) {
				var all []Card
				for p := uint8(0); p < s.Rules.NumPlayers; p++ {
					all = append(all, s.Hand(p)...)
				}
				all = append(all, s.Removed...)
				all = append(all, s.Undealt()...)
				if !equalCards(sortedCards(all), want) {
					t.Fatalf("turn %d: cards not conserved", s.TurnNumber)
				}
			})
		}
	}
}

// TestDerivedCounters verifies counters and current player against the log.
func TestDerivedCounters(t *testing.T) {
	g, _ := NewGame(3, 3, 6, 11)
	_ = g.Start()

	playRandom(t, g, 5, func(s *State) {
		hints := int(g.Rules.StartHints)
		failures := int(g.Rules.StartFailures)
		for _, turn := range g.Log {
			if turn.HintRestored {
				hints++
			}
			if turn.Type == TurnHint {
				hints--
			}
			if turn.Type == TurnPut && !turn.PutCorrect {
				failures--
			}
		}
		if s.Hints != hints || s.Failures != failures {
			t.Fatalf("turn %d: Hints = %d, Failures = %d; want %d, %d", s.TurnNumber, s.Hints, s.Failures, hints, failures)
		}
		if s.Hints > int(g.Rules.StartHints) || s.Hints < 0 {
			t.Fatalf("turn %d: Hints %d outside 0..%d", s.TurnNumber, s.Hints, g.Rules.StartHints)
		}
		if want := uint8(len(g.Log) % 3); s.CurrentPlayer() != want {
			t.Fatalf("CurrentPlayer = %d, want %d", s.CurrentPlayer(), want)
		}
	})
}
