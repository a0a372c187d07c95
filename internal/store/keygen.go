package store

import "github.com/jaevor/go-nanoid"

const joinKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// JoinKeyLength is the length of generated room join keys.
const JoinKeyLength = 8

var newJoinKey = mustKeyGenerator()

func mustKeyGenerator() func() string {
	gen, err := nanoid.CustomASCII(joinKeyAlphabet, JoinKeyLength)
	if err != nil {
		// Only reachable with an invalid alphabet or length.
		panic(err)
	}
	return gen
}

// NewJoinKey returns a fresh 8-character uppercase alphanumeric room key.
func NewJoinKey() string {
	return newJoinKey()
}
