package hub

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// IDGenerator hands out room and match ids. Room ids are short codes players
// can read to each other; the hub regenerates on collision.
type IDGenerator interface {
	RoomID() (string, error)
	MatchID() string
}

type randomIDs struct{}

func (randomIDs) RoomID() (string, error) { return GenerateCode() }

func (randomIDs) MatchID() string { return uuid.NewString() }

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
