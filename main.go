// Command fortytwo is a terminal client for the 42 dominoes server. It signs
// in over HTTP, joins a game over the websocket, mirrors server state, and
// turns stdin lines into game intents.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fortytwo/internal/api"
	"fortytwo/internal/game"
	"fortytwo/internal/history"
	"fortytwo/internal/model"
	"fortytwo/internal/session"
)

func main() {
	godotenv.Load()

	level, err := zerolog.ParseLevel(envStr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("fortytwo exited")
	}
}

func run(log zerolog.Logger) error {
	serverURL := envStr("SERVER_URL", "http://localhost:5001")
	gameID := envStr("GAME_ID", "")
	username := envStr("FORTYTWO_USERNAME", "")
	password := envStr("FORTYTWO_PASSWORD", "")
	historyPath := envStr("HISTORY_DB", "fortytwo.db")

	if len(os.Args) > 1 {
		gameID = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.New(serverURL)
	if err != nil {
		return err
	}
	var user api.User
	if username != "" {
		user, err = client.SignIn(ctx, username, password)
	} else {
		user, err = client.Guest(ctx)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	log.Info().Str("username", user.Username).Bool("guest", user.IsGuest).Msg("signed in")

	if gameID == "" {
		gameID, err = pickGame(ctx, client)
		if err != nil {
			return err
		}
	}

	hist, err := history.NewStore(historyPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hist.Close()

	term := &terminal{out: os.Stdout, hist: hist, log: log}
	sess, err := session.New(session.Config{
		BaseURL:    serverURL,
		GameID:     gameID,
		HTTPClient: client.HTTPClient(),
		Listener:   term,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	go sess.Run(ctx)
	defer sess.Close()

	fmt.Fprintf(term.out, "Joined game %s as %s. Type 'help' for commands.\n", gameID, user.Username)
	commandLoop(ctx, term, sess, hist)

	sess.LeaveGame()
	client.Logout(context.Background())
	return nil
}

// pickGame lists the lobby and joins the first open game, or creates one.
func pickGame(ctx context.Context, client *api.Client) (string, error) {
	games, err := client.ListGames(ctx)
	if err != nil {
		return "", fmt.Errorf("list games: %w", err)
	}
	for _, g := range games {
		if g.Phase == "waiting" && g.PlayerCount < 4 {
			return g.GameID, nil
		}
	}
	id, err := client.CreateGame(ctx, "", true)
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	return id, nil
}

func commandLoop(ctx context.Context, term *terminal, sess *session.Session, hist *history.Store) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch strings.ToLower(cmd) {
		case "help":
			term.printHelp()
		case "state":
			term.show(sess.Store().Game())
		case "hand":
			term.showHand(sess.Store().Game())
		case "bid":
			var n int
			if n, err = strconv.Atoi(rest); err != nil {
				err = fmt.Errorf("usage: bid 30-42")
				break
			}
			err = sess.PlaceBid(n)
		case "pass":
			err = sess.Pass()
		case "trump":
			var suit int
			if suit, err = parseSuit(rest); err == nil {
				err = sess.SelectTrump(suit)
			}
		case "play":
			err = sess.PlayDominoID(rest)
		case "say":
			err = sess.SendChat(rest)
		case "start":
			err = sess.StartGame()
		case "bots":
			err = sess.AddBots()
		case "history":
			term.printHistory(hist)
		case "quit", "exit":
			return
		default:
			err = fmt.Errorf("unknown command %q, try 'help'", cmd)
		}
		if err != nil {
			fmt.Fprintf(term.out, "! %v\n", err)
		}
	}
}

// parseSuit accepts a pip number or a suit name.
func parseSuit(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("suit must be 0-6")
		}
		return n, nil
	}
	for i, name := range model.SuitNames {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", s)
}

// terminal renders store notifications as plain text lines.
type terminal struct {
	mu   sync.Mutex
	out  *os.File
	hist *history.Store
	log  zerolog.Logger
}

func (t *terminal) GameChanged(g model.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render(g)
}

func (t *terminal) Toast(text string, level game.ToastLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := "*"
	if level == game.ToastError {
		prefix = "!"
	}
	fmt.Fprintf(t.out, "%s %s\n", prefix, text)
}

func (t *terminal) ChatReceived(msg model.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	who := msg.Username
	if msg.IsSpectator {
		who += " (spectator)"
	}
	fmt.Fprintf(t.out, "[chat] %s: %s\n", who, msg.Message)
}

func (t *terminal) TrickCleared(g model.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, "* table cleared")
}

func (t *terminal) GameOver(winnerTeam int, g model.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "=== Game over. Team %d wins %d-%d ===\n",
		winnerTeam, g.Team1Marks, g.Team2Marks)
	if err := t.hist.Record(g, winnerTeam); err != nil {
		t.log.Warn().Err(err).Msg("match not recorded")
	}
}

func (t *terminal) ConnectionChanged(up bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if up {
		fmt.Fprintln(t.out, "* connected")
	} else {
		fmt.Fprintln(t.out, "* disconnected")
	}
}

func (t *terminal) show(g model.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render(g)
}

func (t *terminal) showHand(g model.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printHand(g)
}

func (t *terminal) render(g model.GameState) {
	fmt.Fprintf(t.out, "-- %s", g.Phase)
	if g.TrumpSuit != nil {
		fmt.Fprintf(t.out, " | trump %s", model.SuitNames[*g.TrumpSuit])
	}
	if g.CurrentTurn.Valid() {
		fmt.Fprintf(t.out, " | turn %s", g.CurrentTurn)
	}
	fmt.Fprintf(t.out, " | marks %d-%d", g.Team1Marks, g.Team2Marks)
	if g.Phase == model.PhasePlaying {
		fmt.Fprintf(t.out, " | tricks %d-%d points %d-%d",
			g.Team1Tricks, g.Team2Tricks, g.Team1HandPoints, g.Team2HandPoints)
	}
	fmt.Fprintln(t.out)

	if len(g.DisplayTrick) > 0 {
		var plays []string
		for _, p := range g.DisplayTrick {
			plays = append(plays, fmt.Sprintf("%s:%s", p.Seat, p.Domino))
		}
		fmt.Fprintf(t.out, "   trick: %s\n", strings.Join(plays, "  "))
	}

	switch game.ActivePanel(&g) {
	case game.PanelBidding:
		if bids := game.AvailableBids(&g); len(bids) > 0 {
			fmt.Fprintf(t.out, "   your bid (%d-%d) or pass\n", bids[0], bids[len(bids)-1])
			t.printHand(g)
		}
	case game.PanelTrump:
		fmt.Fprintln(t.out, "   name trump: trump <0-6|name>")
		t.printHand(g)
	default:
		if g.Phase == model.PhasePlaying && g.CurrentTurn == g.MySeat {
			t.printHand(g)
		}
	}
}

func (t *terminal) printHand(g model.GameState) {
	hand := g.MyHand()
	if len(hand) == 0 {
		return
	}
	playable := make(map[model.Domino]bool)
	if g.Phase == model.PhasePlaying && g.CurrentTurn == g.MySeat {
		for _, d := range game.PlayableDominoes(hand, g.LeadSuit) {
			playable[d] = true
		}
	}
	var tiles []string
	for _, d := range hand {
		tile := d.ID()
		if playable[d] {
			tile = "[" + tile + "]"
		}
		tiles = append(tiles, tile)
	}
	fmt.Fprintf(t.out, "   hand: %s\n", strings.Join(tiles, " "))
}

func (t *terminal) printHistory(hist *history.Store) {
	t.mu.Lock()
	defer t.mu.Unlock()
	matches, err := hist.Recent(10)
	if err != nil {
		fmt.Fprintf(t.out, "! %v\n", err)
		return
	}
	if len(matches) == 0 {
		fmt.Fprintln(t.out, "* no matches recorded yet")
		return
	}
	for _, m := range matches {
		result := "lost"
		if m.Won() {
			result = "won"
		}
		fmt.Fprintf(t.out, "%s  %s  %s %d-%d (team %d won)\n",
			m.FinishedAt.Format("2006-01-02 15:04"), m.GameID, result,
			m.Team1Marks, m.Team2Marks, m.WinnerTeam)
	}
}

func (t *terminal) printHelp() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, `commands:
  start            deal the hand (needs four seats)
  bots             fill empty seats with bots
  bid <30-42>      offer a bid
  pass             decline to bid
  trump <0-6|name> name trump after winning the auction
  play <h-l>       play a domino, e.g. play 6-4
  say <text>       send chat
  state            reprint the table
  hand             reprint your hand
  history          show recent match results
  quit             leave the game
`)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
