package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out ULIDs. IDs generated within the same millisecond stay
// lexicographically increasing.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator returns a generator seeded from crypto/rand. A nil clock
// means time.Now.
func NewGenerator(now func() time.Time) *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     now,
	}
}

// New returns the next identifier.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		// only when the clock runs backwards past the monotonic window
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(nil)

// New returns a plan identifier from the package generator.
func New() string {
	return std.New()
}

// Time extracts the creation time embedded in an identifier.
func Time(s string) (time.Time, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()), nil
}
