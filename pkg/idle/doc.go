// Package idle reports when the user has stopped interacting with the seat, using the Wayland
// [ext-idle-notify-v1] protocol.
//
// A locker uses it to discard a credential that was being typed and then left alone.
//
// [ext-idle-notify-v1]: https://wayland.app/protocols/ext-idle-notify-v1
package idle
