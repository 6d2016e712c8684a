package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"dev/internal/domain"
)

// Selector resolves an ambiguous operation to exactly one container. The
// prompt functions are injectable so tests can drive a choice without a
// terminal; production uses survey.
type Selector struct {
	choose  func(message string, options []string) (int, error)
	confirm func(message string, def bool) (bool, error)
}

// NewSelector returns a survey-backed selector.
func NewSelector() *Selector {
	return &Selector{
		choose: func(message string, options []string) (int, error) {
			var idx int
			prompt := &survey.Select{Message: message, Options: options}
			if err := survey.AskOne(prompt, &idx); err != nil {
				return 0, err
			}
			return idx, nil
		},
		confirm: func(message string, def bool) (bool, error) {
			var ok bool
			prompt := &survey.Confirm{Message: message, Default: def}
			if err := survey.AskOne(prompt, &ok); err != nil {
				return false, err
			}
			return ok, nil
		},
	}
}

// Select picks one container from candidates. An explicit filter matching
// exactly one candidate short-circuits the prompt. Otherwise candidates
// are presented sorted by creation time descending and the user picks
// one; there is never a default or automatic choice.
func (s *Selector) Select(candidates []domain.ContainerRecord, explicitFilter string) (*domain.ContainerRecord, error) {
	sorted := make([]domain.ContainerRecord, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Name < sorted[j].Name
	})

	if explicitFilter != "" {
		var matches []domain.ContainerRecord
		for _, rec := range sorted {
			if rec.Name == explicitFilter {
				matches = append(matches, rec)
			}
		}
		if len(matches) == 0 {
			return nil, &domain.SelectionError{
				Kind:   domain.SelectionNoMatch,
				Detail: fmt.Sprintf("no container matches %q", explicitFilter),
			}
		}
		if len(matches) == 1 {
			return &matches[0], nil
		}
		sorted = matches
	}

	switch len(sorted) {
	case 0:
		return nil, &domain.SelectionError{Kind: domain.SelectionNoMatch}
	case 1:
		return &sorted[0], nil
	}

	options := make([]string, len(sorted))
	for i, rec := range sorted {
		options[i] = fmt.Sprintf("%s  %s  (%s, created %s)",
			rec.Name, rec.ShortID(), rec.State, rec.CreatedAt.Format(time.DateTime))
	}

	idx, err := s.choose("Several containers match, pick one:", options)
	if err != nil {
		return nil, &domain.SelectionError{
			Kind:   domain.SelectionInvalidChoice,
			Detail: err.Error(),
		}
	}
	if idx < 0 || idx >= len(sorted) {
		return nil, &domain.SelectionError{
			Kind:   domain.SelectionInvalidChoice,
			Detail: fmt.Sprintf("choice %d out of range", idx+1),
		}
	}
	return &sorted[idx], nil
}

// Confirm asks a yes/no question.
func (s *Selector) Confirm(message string, def bool) (bool, error) {
	ok, err := s.confirm(message, def)
	if err != nil {
		return false, &domain.SelectionError{
			Kind:   domain.SelectionInvalidChoice,
			Detail: err.Error(),
		}
	}
	return ok, nil
}
