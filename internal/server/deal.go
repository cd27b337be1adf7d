package server

import (
	"crypto/rand"
	"encoding/binary"
)

// secureIntN returns a uniform random value in [0, n) using crypto/rand
// with rejection sampling, so every draw is unbiased.
func secureIntN(n int) int {
	if n <= 1 {
		return 0
	}
	bound := uint32(n)
	limit := ^uint32(0) - ^uint32(0)%bound
	buf := make([]byte, 4)
	for {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms; if it
			// does, a fixed draw is still a valid (degenerate) value.
			return 0
		}
		value := binary.BigEndian.Uint32(buf)
		if value < limit {
			return int(value % bound)
		}
	}
}

// shuffleIDs returns a Fisher-Yates permutation of ids without mutating
// the input.
func shuffleIDs(ids []string) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := secureIntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// dealCards assigns secret roles: the first imposterCount entries of a
// shuffled ID list form the imposter set, and every player receives a card
// in original join order. Imposters get a nil word. Callers are expected
// to clamp imposterCount to >= 1; a count at or above the player count
// yields all-imposter cards, which this engine does not block.
func dealCards(players []Player, imposterCount int, word string) []PlayerCard {
	ids := make([]string, 0, len(players))
	for _, player := range players {
		ids = append(ids, player.PlayerID)
	}
	shuffled := shuffleIDs(ids)
	if imposterCount < 0 {
		imposterCount = 0
	}
	if imposterCount > len(shuffled) {
		imposterCount = len(shuffled)
	}
	imposters := make(map[string]struct{}, imposterCount)
	for _, id := range shuffled[:imposterCount] {
		imposters[id] = struct{}{}
	}

	cards := make([]PlayerCard, 0, len(players))
	for _, player := range players {
		card := PlayerCard{
			PlayerID:    player.PlayerID,
			DisplayName: player.DisplayName,
		}
		if _, ok := imposters[player.PlayerID]; ok {
			card.IsImposter = true
		} else {
			w := word
			card.Word = &w
		}
		cards = append(cards, card)
	}
	return cards
}
