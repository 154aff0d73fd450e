package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Engine and session code log through
// the device and path entries below so every line names the device it is
// about.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel parses and applies a logrus level name.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects log output.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to one JSON object per line.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns an entry carrying one field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithDevice returns an entry scoped to a device.
func WithDevice(device string) *logrus.Entry {
	return Logger.WithField("device", device)
}

// WithPath returns an entry scoped to one configuration path on a device.
func WithPath(device, path string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"device": device,
		"path":   path,
	})
}

// Warnf logs a warning that belongs to no particular device.
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}
