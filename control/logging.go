// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Logger construction shared by the server and client binaries.

package control

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger writing to out (stderr when nil) at the
// named level. Level names are case-insensitive and accept the logrus names
// plus "critical", which maps to error.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l, nil
}

// ParseLevel maps a level name onto a logrus level.
func ParseLevel(level string) (logrus.Level, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "":
		return logrus.InfoLevel, nil
	case "critical":
		return logrus.ErrorLevel, nil
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}
