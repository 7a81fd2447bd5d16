package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/bot"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/config"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/duel"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/questions"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/rank"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/replication"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/score"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/session"
	"github.com/maiarasalmaso/ecoplay-duelo/internal/transport"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var (
		userID     = flag.String("user", "", "user id (required)")
		name       = flag.String("name", "", "display name (defaults to user id)")
		configPath = flag.String("config", "", "path to config YAML")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	catalog, err := questions.Load(cfg.QuestionsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.QuestionsPath).Msg("failed to load question catalog")
	}

	clock := clockwork.NewRealClock()
	tr := transport.Connect(cfg.RelayURL, clock, cfg.PresenceTTL())
	defer tr.Close()

	ranks := rank.Open(filepath.Join(cfg.DataDir, "rank.json"))
	botStore := bot.NewModelStore(filepath.Join(cfg.DataDir, "bot.json"))

	sess, err := session.New(session.Identity{UserID: *userID, Name: *name}, cfg, session.Deps{
		Transport: tr,
		Catalog:   catalog,
		Bot:       bot.NewStrategy(botStore.Load()),
		BotStore:  botStore,
		Reporter:  score.NewReporter(nil, nil, ranks),
		Clock:     clock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to join lobby")
	}

	log.Info().
		Str("userId", *userID).
		Int("questions", catalog.Len()).
		Str("relay", cfg.RelayURL).
		Msg("starting duelo client")

	engine := duel.NewEngine(catalog, cfg.RoundSeconds)
	go renderEvents(sess, engine, catalog, *userID)
	go readCommands(sess)

	<-ctx.Done()
	sess.Close()

	printLeaderboard(ranks)
}

// renderEvents prints the match as it progresses.
func renderEvents(sess *session.Session, engine *duel.Engine, catalog *questions.Catalog, selfID string) {
	for ev := range sess.Events() {
		switch ev.Type {
		case session.EventStageChanged:
			switch ev.Stage {
			case replication.StageQueue:
				fmt.Println("Procurando oponente...")
			case replication.StageMatched:
				fmt.Printf("Pareado com %s!\n", ev.Opponent.Name)
			case replication.StageFinal:
				fmt.Println("Fim de jogo!")
			}
		case session.EventBotOffer:
			fmt.Println("Ninguém na fila. Digite /bot para jogar contra o robô.")
		case session.EventLatency:
			log.Debug().Int("ms", ev.LatencyMs).Msg("latency estimate")
		case session.EventStateUpdated:
			printState(engine, catalog, ev.State, selfID)
		}
	}
}

func printState(engine *duel.Engine, catalog *questions.Catalog, state *models.MatchState, selfID string) {
	switch state.Phase {
	case models.PhaseQuestion:
		if state.TurnUserID != selfID {
			fmt.Printf("[rodada %d/%d] Vez do oponente.\n", state.RoundIndex+1, state.RoundTotal)
			return
		}
		q, ok := catalog.Get(state.QuestionID)
		if !ok {
			return
		}
		fmt.Printf("[rodada %d/%d] %s\n", state.RoundIndex+1, state.RoundTotal, q.Question)
		if options, err := engine.Options(state.MatchID, state.QuestionID, selfID); err == nil {
			for i, opt := range options {
				fmt.Printf("  %d) %s\n", i+1, opt)
			}
		}
		if state.RepassaAvailable && state.PassedByUserID != "" {
			fmt.Println("Responda, ou /repassa para devolver.")
		} else if state.PassedByUserID == "" {
			fmt.Println("Responda, ou /passa para passar.")
		}
	case models.PhaseResult:
		if state.Result == nil {
			return
		}
		switch state.Result.Type {
		case models.ResultCorrect:
			fmt.Printf("Correto! Ponto para %s.\n", state.Players[state.Result.WinnerID].Name)
		case models.ResultTimeout:
			fmt.Println("Tempo esgotado!")
		default:
			fmt.Printf("Errado. A resposta era: %s\n", state.Result.CorrectAnswer)
		}
	case models.PhaseFinal:
		ids := state.PlayerIDs()
		for _, id := range ids {
			fmt.Printf("  %s: %d\n", state.Players[id].Name, state.Scores[id])
		}
		if state.WinnerID == "" {
			fmt.Println("Empate! Digite /denovo para a desempatar.")
		} else if state.WinnerID == selfID {
			fmt.Printf("Você venceu! +%d XP. /denovo para revanche.\n", score.XP(state.Scores[selfID], true))
		} else {
			fmt.Printf("Você perdeu. +%d XP. /denovo para revanche.\n", score.XP(state.Scores[selfID], false))
		}
	}
}

// readCommands turns stdin lines into session calls. A plain line is an
// answer; slash commands cover the rest.
func readCommands(sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/passa":
			sess.Pass()
		case "/repassa":
			sess.Repassa()
		case "/denovo":
			sess.RequestRematch()
		case "/bot":
			sess.StartBotMatch()
		case "/sair":
			sess.LeaveMatch()
		default:
			sess.SubmitAnswer(line)
		}
	}
}

func printLeaderboard(ranks *rank.Store) {
	top := ranks.Top(5)
	if len(top) == 0 {
		return
	}
	fmt.Println("Ranking local:")
	for i, entry := range top {
		fmt.Printf("  %d. %s  %d\n", i+1, entry.Name, entry.Rating)
	}
}
