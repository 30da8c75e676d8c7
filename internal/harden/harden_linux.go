package harden

import "golang.org/x/sys/unix"

// setNotDumpable blocks ptrace attach by same-uid processes and /proc/pid/mem reads.
func setNotDumpable() error {
	return unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0)
}

func dumpable() (bool, error) {
	v, err := unix.PrctlRetInt(unix.PR_GET_DUMPABLE, 0, 0, 0, 0)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
