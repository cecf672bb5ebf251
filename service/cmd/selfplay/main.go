// Command selfplay runs games between agents on the engine alone and reports
// the scores. With -features it also writes one JSON line per decision: the
// encoded observation of the acting player and the turn id chosen.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"

	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/engine/agent"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxTurns bounds a game; a full deck ends well before it.
const maxTurns = 1000

type sample struct {
	Game     int       `json:"game"`
	Turn     int       `json:"turn"`
	Player   uint8     `json:"player"`
	Features []float32 `json:"features"`
	Chosen   int       `json:"chosen"`
}

type result struct {
	Status engine.Status
	Score  int
	Turns  int
}

func main() {
	players := flag.Int("players", 2, "players per game (2-4)")
	games := flag.Int("games", 100, "number of games")
	seed := flag.Uint64("seed", 1, "seed of the first game; game i uses seed+i")
	kind := flag.String("agent", "heuristic", "agent to play every seat (heuristic, random)")
	features := flag.String("features", "", "write observation samples as JSON lines to this file")
	workers := flag.Int("workers", runtime.NumCPU(), "games played in parallel")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	var out *json.Encoder
	if *features != "" {
		f, err := os.Create(*features)
		if err != nil {
			logger.WithError(err).Fatal("create features file")
		}
		w := bufio.NewWriter(f)
		defer func() {
			if err := w.Flush(); err != nil {
				logger.WithError(err).Error("flush features")
			}
			f.Close()
		}()
		out = json.NewEncoder(w)
	}

	results := make([]result, *games)
	var mu sync.Mutex // guards out

	var g errgroup.Group
	g.SetLimit(max(*workers, 1))
	for i := 0; i < *games; i++ {
		g.Go(func() error {
			chooser, err := newChooser(*kind, *seed+uint64(i))
			if err != nil {
				return err
			}
			var record func(sample) error
			if out != nil {
				record = func(s sample) error {
					s.Game = i
					mu.Lock()
					defer mu.Unlock()
					return out.Encode(s)
				}
			}
			r, err := playGame(*players, *seed+uint64(i), chooser, record)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = r
			logger.WithFields(logrus.Fields{"game": i, "status": r.Status.String(), "score": r.Score, "turns": r.Turns}).Debug("game finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("self-play failed")
	}

	summarize(logger, results)
}

func newChooser(kind string, seed uint64) (agent.Chooser, error) {
	switch kind {
	case "heuristic":
		return agent.Heuristic{}, nil
	case "random":
		return agent.Random{Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}, nil
	}
	return nil, fmt.Errorf("unknown agent %q", kind)
}

// playGame plays one game with chooser in every seat. record, if set, receives
// one sample per decision.
func playGame(players int, seed uint64, chooser agent.Chooser, record func(sample) error) (result, error) {
	g, err := engine.NewGame(players, engine.DefaultStartFailures, engine.DefaultStartHints, seed)
	if err != nil {
		return result{}, err
	}
	if err := g.Start(); err != nil {
		return result{}, err
	}
	tr, err := agent.NewTracker(g.Deck, g.Rules)
	if err != nil {
		return result{}, err
	}

	var obs [agent.InputDim]float32
	for g.Status == engine.StatusStarted {
		if len(g.Log) >= maxTurns {
			return result{}, errors.New("game did not end")
		}
		player := tr.State().CurrentPlayer()
		id, err := chooser.Choose(tr, player)
		if err != nil {
			return result{}, err
		}
		if record != nil {
			agent.Encode(tr, player, &obs)
			s := sample{Turn: len(g.Log), Player: player, Features: append([]float32(nil), obs[:]...), Chosen: id}
			if err := record(s); err != nil {
				return result{}, err
			}
		}
		committed, err := g.Commit(player, id)
		if err != nil {
			return result{}, err
		}
		if err := tr.Observe(committed); err != nil {
			return result{}, err
		}
	}
	return result{Status: g.Status, Score: tr.State().Score(), Turns: len(g.Log)}, nil
}

func summarize(logger *logrus.Logger, results []result) {
	if len(results) == 0 {
		return
	}
	var won, total, best int
	for _, r := range results {
		if r.Status == engine.StatusWon {
			won++
		}
		total += r.Score
		best = max(best, r.Score)
	}
	logger.WithFields(logrus.Fields{
		"games":     len(results),
		"won":       won,
		"meanScore": fmt.Sprintf("%.2f", float64(total)/float64(len(results))),
		"bestScore": best,
	}).Info("self-play finished")
}
