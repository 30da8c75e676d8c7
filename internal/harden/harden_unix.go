//go:build unix

package harden

import "golang.org/x/sys/unix"

func disableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}

func coreDumpsDisabled() bool {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlimit); err != nil {
		return false
	}
	return rlimit.Cur == 0 && rlimit.Max == 0
}
