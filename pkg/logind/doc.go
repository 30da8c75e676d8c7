// Package logind talks to systemd-logind over its D-Bus interface, [org.freedesktop.login1].
//
// A locker uses it to publish the session's LockedHint, to observe (and refuse) unlock requests,
// and to hold a sleep delay inhibitor so in-flight credential input can be wiped before the
// system suspends.
//
// [org.freedesktop.login1]: https://www.freedesktop.org/software/systemd/man/latest/org.freedesktop.login1.html
package logind
