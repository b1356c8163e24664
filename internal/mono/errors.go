package mono

import "errors"

// Attach-level fatal errors (see SPEC_FULL §7): these abort the process
// with a user-visible message naming what was expected versus found.
var (
	// ErrNotCeleste indicates the first Mono domain isn't named
	// "Celeste.exe" — either this isn't Celeste, or the hard-coded
	// layout no longer matches the running build.
	ErrNotCeleste = errors.New("mono: target's first domain is not Celeste.exe")

	// ErrClassNotFound indicates a class-cache lookup exhausted every
	// bucket without a match.
	ErrClassNotFound = errors.New("mono: class not found")

	// ErrFieldNotFound indicates a field search exhausted every field
	// on a class without a match.
	ErrFieldNotFound = errors.New("mono: field not found")

	// ErrUnexpectedClassKind indicates a class-kind byte outside the
	// set navigable for field-offset lookup (ClassDef, GTD, GInst).
	ErrUnexpectedClassKind = errors.New("mono: unexpected class kind")

	// ErrClassNotLoaded indicates no domain's runtime-info table has a
	// non-null vtable for a class whose static fields were requested.
	ErrClassNotLoaded = errors.New("mono: class not loaded in any domain")
)
