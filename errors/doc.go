/*
Package errors provides semantic error types for the persistence library.

The package defines the failure kinds a caller has to tell apart, each with a
sentinel that can be checked with the standard errors.Is() function or the
provided helper functions.

Common Errors:

	var (
	    ErrNotFound          = errors.New("entity not found")
	    ErrAlreadyExists     = errors.New("entity already exists")
	    ErrInvalidInput      = errors.New("invalid input")
	    ErrStoreLoad         = errors.New("store load failed")
	    ErrOperation         = errors.New("operation failed")
	    ErrConflict          = errors.New("merge conflict")
	    ErrIncompatibleModel = errors.New("incompatible model")
	)

Usage:

	controller, err := persistence.New(ctx, model, specs)
	if err != nil {
	    var loadErr *errors.StoreLoadError
	    if stderrors.As(err, &loadErr) {
	        log.Printf("store #%d (%s) is unusable: %v", loadErr.Index, loadErr.Store, loadErr.Err)
	    }
	    return err
	}

	note, err := query.FetchFirst(ctx, fg, byTitle)
	if errors.IsNotFound(err) {
	    // absence, not failure
	}

StoreLoadError and OperationError unwrap to their cause, so checks against
fs.ErrPermission or context.Canceled keep working through them.
*/
package errors
