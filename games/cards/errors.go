/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import "errors"

var (
	ErrDuplicateCard    = errors.New("duplicate card id")
	ErrInvalidCard      = errors.New("invalid card")
	ErrIDExhausted      = errors.New("could not generate a unique card id")
	ErrNoDeck           = errors.New("game requires a deck")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrGameFinished     = errors.New("game is finished")
	ErrWrongPhase       = errors.New("operation not allowed in current phase")
	ErrDuplicatePlayer  = errors.New("player already in game")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownCard      = errors.New("unknown card")
	ErrCardNotInHand    = errors.New("card is not in player's hand")
	ErrAlreadySubmitted = errors.New("player already submitted a card this round")
	ErrNothingToReveal  = errors.New("no card submitted for player")
)
