package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

func InitLogs() *logrus.Logger {
	log := logrus.New()

	log.SetReportCaller(true)
	log.SetOutput(os.Stderr)

	return log
}

// InitLogsWithLevel is InitLogs with the level parsed from name. Unknown names keep info.
func InitLogsWithLevel(name string, out io.Writer) *logrus.Logger {
	log := InitLogs()
	if out != nil {
		log.SetOutput(out)
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		log.Warnf("invalid log level %q, using %s", name, logrus.InfoLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func WithReqID(reqID string, inner logrus.FieldLogger) logrus.FieldLogger {
	return inner.WithField("request_id", reqID)
}
