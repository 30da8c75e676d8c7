// Package pamauth implements [auth.Verifier] on top of Linux-PAM.
//
// The service name selects the PAM stack, usually a file in /etc/pam.d. PAM message styles are
// mapped onto [auth.MessageKind] so the conversation rules of package auth apply unchanged.
// The package requires cgo; without it [Verifier.Start] returns [ErrUnsupported].
package pamauth

import "errors"

// ErrUnsupported is returned when the binary was built without PAM support.
var ErrUnsupported = errors.New("pamauth: built without cgo, PAM is unavailable")
