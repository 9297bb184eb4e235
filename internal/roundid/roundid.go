// Package roundid generates time-sortable round identifiers: a UUIDv7
// rendered as 26 characters of lowercase Crockford base32.
package roundid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Crockford's base32, lowercase (no i, l, o, u).
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the encoded length of every round ID.
const Length = 26

// Generator produces round IDs stamped with its clock's time.
type Generator struct {
	clock   quartz.Clock
	entropy io.Reader
}

// NewGenerator returns a generator using clock for the timestamp and entropy
// for the random tail. Nil arguments fall back to the wall clock and
// crypto/rand.
func NewGenerator(clock quartz.Clock, entropy io.Reader) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Generator{clock: clock, entropy: entropy}
}

// New returns a round ID from the wall clock and crypto/rand.
func New() string {
	return NewGenerator(nil, nil).New()
}

// New returns the next round ID.
func (g *Generator) New() string {
	return Encode(g.uuid(g.clock.Now()))
}

func (g *Generator) uuid(now time.Time) uuid.UUID {
	var u uuid.UUID
	ms := uint64(now.UnixMilli())
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)

	if _, err := io.ReadFull(g.entropy, u[6:]); err != nil {
		panic("roundid: failed to read entropy: " + err.Error())
	}

	u[6] = (u[6] & 0x0f) | 0x70 // version 7
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant
	return u
}

// Encode renders u as 26 base32 characters. The 128 bits are left-padded
// with two zero bits, so the first character is always 0-7.
func Encode(u uuid.UUID) string {
	hi := binary.BigEndian.Uint64(u[:8])
	lo := binary.BigEndian.Uint64(u[8:])

	out := make([]byte, Length)
	for i := Length - 1; i >= 0; i-- {
		out[i] = alphabet[lo&0x1f]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out)
}

// Decode parses an encoded ID back into its UUID.
func Decode(id string) (uuid.UUID, error) {
	if err := Validate(id); err != nil {
		return uuid.UUID{}, err
	}
	var hi, lo uint64
	for i := 0; i < Length; i++ {
		v := uint64(strings.IndexByte(alphabet, id[i]))
		hi = hi<<5 | lo>>59
		lo = lo<<5 | v
	}
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], hi)
	binary.BigEndian.PutUint64(u[8:], lo)
	return u, nil
}

// Timestamp returns the creation time embedded in id.
func Timestamp(id string) (time.Time, error) {
	u, err := Decode(id)
	if err != nil {
		return time.Time{}, err
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("round ID %s is not a version 7 UUID", id)
	}
	ms := binary.BigEndian.Uint64(u[:8]) >> 16
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Validate checks that id has the right length and alphabet.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("round ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("round ID first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
