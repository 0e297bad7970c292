package randstr

import (
	"math/rand"
	"sync"
	"time"
)

type Generator struct {
	alphabet []byte
	rnd      *rand.Rand
	mu       sync.Mutex
}

func New(alphabet []byte) *Generator {
	return &Generator{
		alphabet: alphabet,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) GenerateRandomString(length int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, length)
	for i := range b {
		b[i] = g.alphabet[g.rnd.Intn(len(g.alphabet))]
	}

	return string(b)
}
