package archivist

import (
	"errors"

	"github.com/keystat/keystat/pkg/errlvl"
)

// archivistError is a service-level error type.
type archivistError error

var (
	errHashTooLong      archivistError = errors.New("hash is too long")
	errPlatformEmpty    archivistError = errors.New("platform is empty")
	errPlatformTooLong  archivistError = errors.New("platform is too long")
	errPubIDTooLong     archivistError = errors.New("publication_id is too long")
	errTextEmpty        archivistError = errors.New("text is empty")
	errTextTooLong      archivistError = errors.New("text is too long")
	errPostValidation   archivistError = errors.New("post validation failed")
	errPostCreation     archivistError = errors.New("post creation failed")
	errPostFindLatest   archivistError = errors.New("failed to find the latest post")
	errFailedMigration  archivistError = errors.New("failed to migrate schema")
	errFailedConnection archivistError = errors.New("failed to connect to database")
)

// newError creates a wrapped error instance. Validation problems are INFO, database problems ERROR.
func newError(genericErr archivistError, err error) error {
	lvl := errlvl.ERROR
	switch genericErr {
	case errHashTooLong, errPlatformEmpty, errPlatformTooLong, errPubIDTooLong, errTextEmpty, errTextTooLong,
		errPostValidation:
		lvl = errlvl.INFO
	}

	if err != nil {
		return errlvl.Wrap(errors.Join(genericErr, err), lvl)
	}
	return errlvl.Wrap(genericErr, lvl)
}
