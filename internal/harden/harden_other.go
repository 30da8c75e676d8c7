//go:build !linux

package harden

func setNotDumpable() error { return nil }

// dumpable is only tracked on Linux.
func dumpable() (bool, error) { return true, nil }
