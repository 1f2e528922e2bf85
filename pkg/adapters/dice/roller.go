// Package dice provides the default DiceRoller: a seedable parser and
// roller for additive dice expressions like "3d6+2" or "1d20+1d4-1".
package dice

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// maxDicePerTerm caps a single NdM term so a typo like "999999d6" cannot
// stall a flow.
const maxDicePerTerm = 1000

// Roller implements ports.DiceRoller.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures the Roller.
type Option func(*Roller)

// WithSeed makes every roll sequence reproducible. Useful for tests and for
// "replay this character creation" flows.
func WithSeed(seed int64) Option {
	return func(r *Roller) {
		r.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a roller. Without options it is seeded from the global
// source, so independent rollers produce independent sequences.
func New(opts ...Option) *Roller {
	r := &Roller{rng: rand.New(rand.NewSource(rand.Int63()))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roll evaluates one expression. Terms are NdM dice groups or integer
// constants joined by + and -. Whitespace is ignored.
func (r *Roller) Roll(ctx context.Context, expression string) (domain.RollResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RollResult{}, err
	}

	compact := strings.ReplaceAll(expression, " ", "")
	if compact == "" {
		return domain.RollResult{}, fmt.Errorf("empty dice expression")
	}

	terms, err := splitTerms(compact)
	if err != nil {
		return domain.RollResult{}, err
	}

	var (
		total int
		rolls []int
		parts []string
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, term := range terms {
		count, sides, constant, isDice, err := parseTerm(term.text)
		if err != nil {
			return domain.RollResult{}, fmt.Errorf("invalid dice expression '%s': %w", expression, err)
		}

		if !isDice {
			total += term.sign * constant
			parts = append(parts, signedPart(term.sign, strconv.Itoa(constant)))
			continue
		}

		group := make([]int, 0, count)
		sum := 0
		for i := 0; i < count; i++ {
			v := r.rng.Intn(sides) + 1
			group = append(group, v)
			sum += v
		}
		total += term.sign * sum
		rolls = append(rolls, group...)
		parts = append(parts, signedPart(term.sign, fmt.Sprint(group)))
	}

	detail := strings.TrimPrefix(strings.Join(parts, " "), "+ ")
	return domain.RollResult{
		Expression:  expression,
		Total:       total,
		Rolls:       rolls,
		Description: fmt.Sprintf("%s: %s = %d", expression, detail, total),
	}, nil
}

type term struct {
	sign int
	text string
}

func splitTerms(s string) ([]term, error) {
	var terms []term
	sign := 1
	start := 0
	if s[0] == '+' || s[0] == '-' {
		return nil, fmt.Errorf("invalid dice expression '%s': leading operator", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			if i == start {
				return nil, fmt.Errorf("invalid dice expression '%s': empty term", s)
			}
			terms = append(terms, term{sign: sign, text: s[start:i]})
			if s[i] == '-' {
				sign = -1
			} else {
				sign = 1
			}
			start = i + 1
		}
	}
	if start >= len(s) {
		return nil, fmt.Errorf("invalid dice expression '%s': trailing operator", s)
	}
	terms = append(terms, term{sign: sign, text: s[start:]})
	return terms, nil
}

// parseTerm reads "NdM" (N optional, defaults to 1) or a bare integer.
func parseTerm(t string) (count, sides, constant int, isDice bool, err error) {
	idx := strings.IndexAny(t, "dD")
	if idx < 0 {
		n, convErr := strconv.Atoi(t)
		if convErr != nil {
			return 0, 0, 0, false, fmt.Errorf("term '%s' is neither dice nor a number", t)
		}
		return 0, 0, n, false, nil
	}

	count = 1
	if idx > 0 {
		count, err = strconv.Atoi(t[:idx])
		if err != nil {
			return 0, 0, 0, false, fmt.Errorf("bad dice count in '%s'", t)
		}
	}
	sides, err = strconv.Atoi(t[idx+1:])
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("bad side count in '%s'", t)
	}
	if count < 1 || count > maxDicePerTerm {
		return 0, 0, 0, false, fmt.Errorf("dice count %d out of range in '%s'", count, t)
	}
	if sides < 1 {
		return 0, 0, 0, false, fmt.Errorf("dice must have at least 1 side in '%s'", t)
	}
	return count, sides, 0, true, nil
}

func signedPart(sign int, text string) string {
	if sign < 0 {
		return "- " + text
	}
	return "+ " + text
}
