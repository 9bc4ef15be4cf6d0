package app

import (
	"errors"
	"fmt"
	"io"

	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/store"
)

// runRead prints the persisted aggregate. Absence and emptiness of the
// store are informational states, not errors: both exit successfully with
// distinct messages so a user can tell "never run" from "empty file".
func (a *Application) runRead(out io.Writer) int {
	fmt.Fprintln(out, "Selected mode: Read")

	line, err := a.Store.ReadAggregate()
	switch {
	case errors.Is(err, store.ErrAbsent):
		fmt.Fprintf(out, "The %s file does not exist. Run in cache mode first.\n", a.Store.Path())
		return apperrors.ExitSuccess
	case errors.Is(err, store.ErrEmpty):
		fmt.Fprintf(out, "The %s file is empty. Run in cache mode first.\n", a.Store.Path())
		return apperrors.ExitSuccess
	case err != nil:
		a.Logger.Error("reading result store failed", err)
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorStore
	default:
		fmt.Fprintln(out, line)
		return apperrors.ExitSuccess
	}
}
