/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	cardsPerHand   int
	deckDSN        string
	deckFile       string
	historyQueue   string
	maxRounds      int
	maxWins        int
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	redisAddr      string
	redisDB        int
	rotation       string
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	logger *logrus.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.cardsPerHand < 1 {
		return fmt.Errorf("invalid cards per hand (must be at least 1): %d", c.cardsPerHand)
	}
	if !cards.Rotation(c.rotation).Valid() {
		return fmt.Errorf("invalid rotation (must be %q or %q): %q", cards.RotationWinner, cards.RotationNextInList, c.rotation)
	}
	if c.maxWins < 0 || c.maxRounds < 0 {
		return errors.New("--max-wins and --max-rounds must not be negative")
	}
	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis database index: %d", c.redisDB)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// settings are the rules new games start with.
func (c *Config) settings() cards.Settings {
	return cards.Settings{
		Rotation:     cards.Rotation(c.rotation),
		MaxWins:      c.maxWins,
		MaxRounds:    c.maxRounds,
		CardsPerHand: c.cardsPerHand,
	}
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: logDate,
	})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CARDPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cardparty",
		Short:         "A fill-in-the-blank party card game, served over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.logger = newLogger(cfg.verbose)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CARDPARTY_BIND)")
	fs.IntVar(&cfg.cardsPerHand, "cards-per-hand", cards.DefaultCardsPerHand, "white cards dealt to each player (env: CARDPARTY_CARDS_PER_HAND)")
	fs.StringVar(&cfg.deckDSN, "deck-dsn", "", "postgres connection string to load cards from (env: CARDPARTY_DECK_DSN)")
	fs.StringVar(&cfg.deckFile, "deck", "", "path to a json, yaml or toml deck file (env: CARDPARTY_DECK)")
	fs.StringVar(&cfg.historyQueue, "history-queue", "cardparty_actions", "redis list receiving applied game actions (env: CARDPARTY_HISTORY_QUEUE)")
	fs.IntVar(&cfg.maxRounds, "max-rounds", 0, "end games after this many rounds, 0 to disable (env: CARDPARTY_MAX_ROUNDS)")
	fs.IntVar(&cfg.maxWins, "max-wins", 0, "end games when a player reaches this many wins, 0 to disable (env: CARDPARTY_MAX_WINS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed (env: CARDPARTY_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CARDPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CARDPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CARDPARTY_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the action history, empty to disable (env: CARDPARTY_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database index (env: CARDPARTY_REDIS_DB)")
	fs.StringVar(&cfg.rotation, "rotation", string(cards.RotationNextInList), "reader rotation for new games: winner or next-in-list (env: CARDPARTY_ROTATION)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended (env: CARDPARTY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CARDPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CARDPARTY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CARDPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CARDPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cardparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
