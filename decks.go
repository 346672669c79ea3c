/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"
)

//go:embed decks/default.json
var defaultDeck []byte

var errEmptyDeck = errors.New("deck needs at least one black and one white card")

// deckFile is the on-disk deck layout, in any format viper understands.
type deckFile struct {
	Black []string `mapstructure:"black"`
	White []string `mapstructure:"white"`
}

// loadDeck picks the card catalogue every new game is built from: postgres
// first, then a deck file, then the embedded default.
func loadDeck(ctx context.Context, cfg *Config) ([]cards.Card, error) {
	switch {
	case cfg.deckDSN != "":
		return loadDeckFromPostgres(ctx, cfg.deckDSN)
	case cfg.deckFile != "":
		return loadDeckFile(cfg.deckFile)
	default:
		return parseDeck(defaultDeck, "json")
	}
}

func loadDeckFile(path string) ([]cards.Card, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading deck %s: %w", path, err)
	}

	return decodeDeck(v)
}

func parseDeck(data []byte, format string) ([]cards.Card, error) {
	v := viper.New()
	v.SetConfigType(format)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing deck: %w", err)
	}

	return decodeDeck(v)
}

func decodeDeck(v *viper.Viper) ([]cards.Card, error) {
	var d deckFile
	if err := v.Unmarshal(&d); err != nil {
		return nil, fmt.Errorf("decoding deck: %w", err)
	}

	composition := make([]cards.Card, 0, len(d.Black)+len(d.White))
	composition = appendCards(composition, cards.Black, d.Black)
	composition = appendCards(composition, cards.White, d.White)

	return composition, checkDeck(composition)
}

func appendCards(dst []cards.Card, t cards.CardType, texts []string) []cards.Card {
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		dst = append(dst, cards.Card{Type: t, Text: text})
	}
	return dst
}

func checkDeck(composition []cards.Card) error {
	var black, white bool
	for _, c := range composition {
		switch c.Type {
		case cards.Black:
			black = true
		case cards.White:
			white = true
		}
	}
	if !black || !white {
		return errEmptyDeck
	}
	return nil
}

// loadDeckFromPostgres reads the catalogue from a table shaped like
//
//	CREATE TABLE cards (id SERIAL PRIMARY KEY, type TEXT NOT NULL, text TEXT NOT NULL);
func loadDeckFromPostgres(ctx context.Context, dsn string) ([]cards.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to deck database: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `SELECT type, text FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	composition, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cards.Card, error) {
		var kind, text string
		if err := row.Scan(&kind, &text); err != nil {
			return cards.Card{}, err
		}

		t := cards.CardType(strings.ToLower(strings.TrimSpace(kind)))
		if t != cards.Black && t != cards.White {
			return cards.Card{}, fmt.Errorf("%w: type %q", cards.ErrInvalidCard, kind)
		}

		return cards.Card{Type: t, Text: text}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}

	return composition, checkDeck(composition)
}
