// Package nxrand implements the pseudo-random generator described in
// original_source's nx_rand.h: a stream cipher-backed PRNG seeded from
// the system's secure entropy source once, then drawn from
// deterministically and cheaply thereafter. It corresponds to no
// letter-named component in spec.md (the core synchronization spec
// never touches randomness); it is a domain-stack addition pulled in
// to exercise golang.org/x/crypto, a dependency vanadium-go.lib
// (the pack's only other repo with real third-party requirements)
// pulls in for exactly this purpose (see DESIGN.md).
package nxrand

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20"
)

// Generator is a ChaCha20-backed byte stream, reseeded from
// crypto/rand once at construction, matching the "seed once from a
// hardware RNG, then stream cheaply" shape of nx_rand.h's
// randomGetBytes.
type Generator struct {
	mu     sync.Mutex
	cipher *chacha20.Cipher
	ctr    uint64
}

// New constructs a Generator seeded from the operating system's
// secure entropy source.
func New() (*Generator, error) {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &Generator{cipher: c}, nil
}

// Bytes fills p with pseudo-random bytes.
func (g *Generator) Bytes(p []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range p {
		p[i] = 0
	}
	g.cipher.XORKeyStream(p, p)
}

// Uint64 returns a single pseudo-random 64-bit value, mirroring
// nx_rand.h's randomGet64.
func (g *Generator) Uint64() uint64 {
	var buf [8]byte
	g.Bytes(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// defaultGen is the process-wide Generator used by the package-level
// helpers below, lazily constructed the first time it's needed.
var (
	defaultOnce sync.Once
	defaultGen  *Generator
	defaultErr  error
)

func defaultGenerator() (*Generator, error) {
	defaultOnce.Do(func() {
		defaultGen, defaultErr = New()
	})
	return defaultGen, defaultErr
}

// Uint64 draws a single value from the process-wide default
// Generator, matching original_source's convenience global RNG.
func Uint64() (uint64, error) {
	g, err := defaultGenerator()
	if err != nil {
		return 0, err
	}
	return g.Uint64(), nil
}
