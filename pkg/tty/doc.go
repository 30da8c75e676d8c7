// Package tty provides a terminal lock surface: a raw-mode key source and a renderer that
// switches the terminal background between the "ignore" and "store" colors.
package tty
