// Package deck checks submitted decks against the construction rules.
package deck

import (
	"errors"
	"fmt"
	"sort"

	"github.com/caprica/fleet-server/internal/cards"
	"go.uber.org/multierr"
)

// Construction limits.
const (
	MinCards  = 60
	MaxCopies = 4
)

// Submission is a player's deck: a base and a multiset of card ids.
type Submission struct {
	BaseID      string   `json:"baseId"`
	DeckCardIDs []string `json:"deckCardIds"`
}

// Result lists every rule the submission breaks.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err folds the violations back into a single error, or nil when valid.
func (r Result) Err() error {
	var err error
	for _, msg := range r.Errors {
		err = multierr.Append(err, errors.New(msg))
	}
	return err
}

// Validate checks sub against the registry and reports all violations.
func Validate(reg *cards.Registry, sub Submission) Result {
	var errs error

	if sub.BaseID == "" {
		errs = multierr.Append(errs, errors.New("no base selected"))
	} else if _, err := reg.Base(sub.BaseID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("unknown base %q", sub.BaseID))
	}

	if n := len(sub.DeckCardIDs); n < MinCards {
		errs = multierr.Append(errs, fmt.Errorf("deck has %d cards, at least %d required", n, MinCards))
	}

	copies := make(map[string]int)
	var order []string
	for _, id := range sub.DeckCardIDs {
		def, err := reg.Card(id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unknown card %q", id))
			continue
		}
		name := def.Name()
		if copies[name] == 0 {
			order = append(order, name)
		}
		copies[name]++
	}

	sort.Strings(order)
	for _, name := range order {
		if copies[name] > MaxCopies {
			errs = multierr.Append(errs, fmt.Errorf("%d copies of %q, at most %d allowed", copies[name], name, MaxCopies))
		}
	}

	res := Result{Valid: errs == nil, Errors: []string{}}
	for _, err := range multierr.Errors(errs) {
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

// Counts returns how many copies of each card name the submission holds,
// skipping unknown ids.
func Counts(reg *cards.Registry, ids []string) map[string]int {
	out := make(map[string]int)
	for _, id := range ids {
		if def, err := reg.Card(id); err == nil {
			out[def.Name()]++
		}
	}
	return out
}
