package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

// levels lists the logrus levels we expose. We are not using logrus' trace
// and panic levels.
var levels = map[string]logrus.Level{
	"debug":   log.DebugLevel,
	"info":    log.InfoLevel,
	"warning": log.WarnLevel,
	"warn":    log.WarnLevel,
	"error":   log.ErrorLevel,
	"fatal":   log.FatalLevel,
}

// ParseLogLevel maps a --loglevel value to a logrus level.
func ParseLogLevel(level string) (logrus.Level, error) {
	l, ok := levels[strings.ToLower(level)]
	if !ok {
		return 0, fmt.Errorf("bad log level %q", level)
	}
	return l, nil
}

func SetLogLevel(level string) {
	l, err := ParseLogLevel(level)
	if err != nil {
		log.Fatal("Bad error level string")
	}
	Log.SetLevel(l)
}
