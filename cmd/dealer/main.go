package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dreamware/setdealer/internal/cards"
	"github.com/dreamware/setdealer/internal/claims"
	"github.com/dreamware/setdealer/internal/config"
	"github.com/dreamware/setdealer/internal/dealer"
	"github.com/dreamware/setdealer/internal/display"
	"github.com/dreamware/setdealer/internal/liveness"
	"github.com/dreamware/setdealer/internal/player"
	"github.com/dreamware/setdealer/internal/table"
)

func main() {
	cfg, err := config.Load(getenv("SETDEALER_CONFIG", ""))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	srv, err := newServer(cfg)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	defer srv.close()

	mux := http.NewServeMux()
	srv.routes(mux)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("dealer listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.monitor.Start(ctx, srv.probes)
	runErr := srv.game.Run(ctx)
	srv.monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	if runErr != nil {
		log.Printf("game %s ended with errors: %v", srv.game.ID(), runErr)
		srv.close()
		os.Exit(1)
	}
	log.Println("dealer stopped")
}

// server wires one game to its HTTP surface.
type server struct {
	game    *dealer.Dealer
	table   *table.Table
	hub     *display.Hub
	monitor *liveness.Monitor
	nc      *nats.Conn // nil when NATS publishing is disabled
}

// newServer builds a complete game from cfg: display sinks, table, deck,
// computer players, dealer and liveness monitor.
func newServer(cfg config.Config) (*server, error) {
	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = newSeed(); err != nil {
			return nil, err
		}
	}
	rng := rand.New(rand.NewSource(seed))
	gameID := uuid.NewString()

	s := &server{hub: display.NewHub(gameID)}
	sinks := []display.Sink{display.NewLog(log.Default()), s.hub}
	if cfg.NATSURL != "" {
		nc, err := display.Connect(cfg.NATSURL, "setdealer-"+gameID)
		if err != nil {
			return nil, err
		}
		s.nc = nc
		sinks = append(sinks, display.NewPublisher(nc, cfg.NATSSubject, gameID))
	}
	sink := display.Multi(sinks...)

	oracle := cards.NewFeatureOracle(cfg.FeatureCount, cfg.FeatureSize)
	s.table = table.New(cfg.TableSize, sink)
	queue := claims.NewQueue()

	players := make([]*player.Player, cfg.Players)
	for id := range players {
		players[id] = player.New(id, s.table, queue, newStrategy(id, oracle, rng), player.Options{
			Sink:           sink,
			ActionInterval: cfg.ActionInterval(),
			PointFreeze:    cfg.PointFreeze(),
			PenaltyFreeze:  cfg.PenaltyFreeze(),
		})
	}

	s.game = dealer.New(s.table, cards.NewDeck(cfg.DeckSize, rng), oracle, queue, players, dealer.Options{
		Sink:            sink,
		GameID:          gameID,
		RoundDuration:   cfg.RoundDuration(),
		Warning:         cfg.Warning(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Hints:           cfg.Hints,
	})

	s.monitor = liveness.NewMonitor(cfg.LivenessInterval(), cfg.LivenessStall())
	s.monitor.SetOnStalled(func(id int) {
		log.Printf("Game %s: player %d is stalled", gameID, id)
	})

	log.Printf("Game %s configured with seed %d", gameID, seed)
	return s, nil
}

// newStrategy alternates oracle-guided and random computer players.
func newStrategy(id int, oracle cards.Oracle, rng *rand.Rand) player.Strategy {
	if id%2 == 0 {
		return player.NewSeeker(oracle)
	}
	return player.NewRandom(rand.New(rand.NewSource(rng.Int63())))
}

// probes reports every player's progress to the liveness monitor.
func (s *server) probes() []liveness.Probe {
	players := s.game.Players()
	out := make([]liveness.Probe, len(players))
	for i, p := range players {
		out[i] = liveness.Probe{ID: p.ID(), LastProgress: p.LastProgress(), Waiting: p.Waiting()}
	}
	return out
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/table", s.handleTable)
	mux.HandleFunc("/scores", s.handleScores)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/ws", s.hub)
}

func (s *server) close() {
	s.hub.Close()
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
}

func (s *server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, struct {
		Game     string       `json:"game"`
		Slots    []table.Slot `json:"slots"`
		Capacity int          `json:"capacity"`
	}{Game: s.game.ID(), Slots: s.table.Snapshot(), Capacity: s.table.Capacity()})
}

func (s *server) handleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, struct {
		Game   string         `json:"game"`
		Scores []dealer.Score `json:"scores"`
	}{Game: s.game.ID(), Scores: s.game.Scores()})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var stalled []int
	for _, p := range s.game.Players() {
		if s.monitor.IsStalled(p.ID()) {
			stalled = append(stalled, p.ID())
		}
	}

	writeJSON(w, struct {
		Game       string       `json:"game"`
		Mode       string       `json:"mode"`
		Stalled    []int        `json:"stalled,omitempty"`
		Stats      dealer.Stats `json:"stats"`
		Spectators int          `json:"spectators"`
	}{
		Game:       s.game.ID(),
		Mode:       s.game.Mode().String(),
		Stalled:    stalled,
		Stats:      s.game.Stats(),
		Spectators: s.hub.Clients(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newSeed returns a random seed from the operating system.
func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
