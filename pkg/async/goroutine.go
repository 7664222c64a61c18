package async

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// SafeGo executes fn in a goroutine with panic recovery and error logging.
// Use this instead of a bare `go func()` for fire-and-forget work.
func SafeGo(log *logrus.Entry, taskName string, fn func() error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("recovered panic in background task")
			}
		}()
		if err := fn(); err != nil {
			log.WithError(err).WithField("task", taskName).Error("background task failed")
		}
	}()
}
