// Package secrets allows communication with [org.freedesktop.Secret].
// Programs that provide this API include Gnome Keyring, KDE Wallet, and keepassxc.
//
// A locker uses it to lock keyring collections when the screen locks, so unlocked secrets are
// not reachable from the locked session.
//
// [org.freedesktop.Secret]: https://specifications.freedesktop.org/secret-service-spec/latest/
package secrets
