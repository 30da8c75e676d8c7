//go:build !unix

package harden

func disableCoreDumps() error { return nil }

func coreDumpsDisabled() bool { return false }
