package services

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidRule = errors.New("invalid rule")

// Rule appends Word to a label when the number is divisible by Divisor.
type Rule struct {
	Divisor int    `json:"divisor"`
	Word    string `json:"word"`
}

var DefaultRules = []Rule{
	{Divisor: 3, Word: "Visual"},
	{Divisor: 5, Word: "Nuts"},
}

var defaultLabeler = &Labeler{rules: DefaultRules}

type Labeler struct {
	rules []Rule
}

func NewLabeler(rules []Rule) (*Labeler, error) {
	for _, r := range rules {
		if r.Divisor <= 0 {
			return nil, fmt.Errorf("%w: divisor %d must be positive (%q)", ErrInvalidRule, r.Divisor, r.Word)
		}
		if r.Word == "" {
			return nil, fmt.Errorf("%w: empty word for divisor %d", ErrInvalidRule, r.Divisor)
		}
	}
	return &Labeler{rules: append([]Rule(nil), rules...)}, nil
}

// Label joins the words of every matching rule with a space, in rule order.
// Without a match the label is n in decimal.
func (l *Labeler) Label(n int) string {
	words := make([]string, 0, len(l.rules))
	for _, r := range l.rules {
		if n%r.Divisor == 0 {
			words = append(words, r.Word)
		}
	}

	if len(words) == 0 {
		return strconv.Itoa(n)
	}
	return strings.Join(words, " ")
}

// Emitter receives one label per call.
type Emitter func(label string) error

// Emit calls emit with the label of every integer from 1 to target, in order,
// and returns how many labels were emitted.
func (l *Labeler) Emit(target int, emit Emitter) (int, error) {
	emitted := 0
	for i := 1; i <= target; i++ {
		if err := emit(l.Label(i)); err != nil {
			return emitted, fmt.Errorf("emit %d: %w", i, err)
		}
		emitted++
	}
	return emitted, nil
}

func LabelFor(n int) string {
	return defaultLabeler.Label(n)
}

// EmitRange writes LabelFor(1..target) to w, one per line. A non-positive
// target writes nothing.
func EmitRange(w io.Writer, target int) (int, error) {
	return defaultLabeler.Emit(target, LineEmitter(w))
}

func LineEmitter(w io.Writer) Emitter {
	return func(label string) error {
		_, err := fmt.Fprintln(w, label)
		return err
	}
}
