package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Setup configures the standard logrus logger. format is "text", "json" or
// "auto", which picks coloured text on a terminal and JSON otherwise.
func Setup(level, format string) (*logrus.Logger, error) {
	return configure(logrus.StandardLogger(), os.Stderr, isTerminal(os.Stderr), level, format)
}

func configure(l *logrus.Logger, out io.Writer, tty bool, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l.SetOutput(out)
	l.SetLevel(lvl)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: !tty})
	case "auto", "":
		if tty {
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
		} else {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
