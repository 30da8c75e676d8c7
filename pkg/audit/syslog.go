//go:build !windows && !plan9

package audit

import (
	"fmt"
	"io"
	"log/syslog"
)

// DialSyslog connects to the authpriv syslog facility. Pass the result to NewJSONSink.
func DialSyslog(tag string) (io.WriteCloser, error) {
	w, err := syslog.New(syslog.LOG_AUTHPRIV|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog: %w", err)
	}

	return w, nil
}
