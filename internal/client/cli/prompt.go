package cli

import (
	"context"

	"github.com/charmbracelet/huh"

	"github.com/mitul002/prayersync/internal/client/sync"
)

// ConflictPrompter renders the three-way conflict choice as an
// interactive terminal form. It blocks until the user picks an option
// or the form is cancelled; the reconciler falls back to cloud data on
// cancellation.
type ConflictPrompter struct{}

func NewConflictPrompter() *ConflictPrompter { return &ConflictPrompter{} }

func (p *ConflictPrompter) Choose(ctx context.Context) (sync.Resolution, error) {
	choice := sync.ResolutionMerge

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[sync.Resolution]().
			Title("Data found both on this device and in your account").
			Description("Choose which copy to keep.").
			Options(
				huh.NewOption("Merge both (recommended)", sync.ResolutionMerge),
				huh.NewOption("Keep account data", sync.ResolutionKeepCloud),
				huh.NewOption("Keep this device's data", sync.ResolutionKeepLocal),
			).
			Value(&choice),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return sync.ResolutionKeepCloud, err
	}
	return choice, nil
}
