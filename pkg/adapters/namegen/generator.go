// Package namegen provides the default NameGenerator: a small seedable
// syllable chainer with a handful of built-in corpora. It is deliberately
// tolerant: unknown corpus, segmenter or algorithm values fall back to
// defaults instead of failing, so partially-authored systems keep working.
package namegen

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// DefaultCorpus is used when the request names no corpus or an unknown one.
const DefaultCorpus = "generic-fantasy"

var corpora = map[string]corpus{
	"generic-fantasy": {
		openers: []string{"ka", "el", "tor", "bran", "mor", "fen", "gal", "is", "or", "thal"},
		middles: []string{"an", "ar", "en", "il", "on", "ad", "ri", "ost", "ev"},
		closers: []string{"dor", "wyn", "ric", "mir", "las", "eth", "gar", "ia", "us", "on"},
	},
	"norse": {
		openers: []string{"bjor", "sig", "thor", "ast", "frey", "hal", "ing", "rag"},
		middles: []string{"n", "mun", "ulf", "vald", "ar", "ger"},
		closers: []string{"sen", "dis", "ny", "hild", "grim", "rid"},
	},
	"goblin": {
		openers: []string{"zik", "grak", "snag", "mub", "rat", "skri"},
		middles: []string{"ba", "zle", "go", "nak"},
		closers: []string{"git", "zod", "nik", "bash", "grub"},
	},
}

type corpus struct {
	openers []string
	middles []string
	closers []string
}

// Generator implements ports.NameGenerator.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures the Generator.
type Option func(*Generator)

// WithSeed makes the name sequence reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a generator.
func New(opts ...Option) *Generator {
	g := &Generator{rng: rand.New(rand.NewSource(rand.Int63()))}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one name. MaxLength (when > 0) bounds the result; the
// generator drops middle syllables first rather than truncating mid-word.
func (g *Generator) Generate(ctx context.Context, req domain.NameRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c, ok := corpora[req.Corpus]
	if !ok {
		c = corpora[DefaultCorpus]
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	middles := g.rng.Intn(2) + 1
	for {
		name := g.compose(c, middles)
		if req.MaxLength <= 0 || len(name) <= req.MaxLength {
			return name, nil
		}
		if middles > 0 {
			middles--
			continue
		}
		// Even the shortest form is too long; return it anyway rather than
		// fail, clipped to the limit.
		return name[:req.MaxLength], nil
	}
}

func (g *Generator) compose(c corpus, middles int) string {
	var b strings.Builder
	b.WriteString(c.openers[g.rng.Intn(len(c.openers))])
	for i := 0; i < middles; i++ {
		b.WriteString(c.middles[g.rng.Intn(len(c.middles))])
	}
	b.WriteString(c.closers[g.rng.Intn(len(c.closers))])

	name := b.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// Corpora returns the built-in corpus names, for listings and validation
// hints.
func Corpora() []string {
	names := make([]string, 0, len(corpora))
	for name := range corpora {
		names = append(names, name)
	}
	return names
}
