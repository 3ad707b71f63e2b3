package loader

import (
	"go.uber.org/zap"
)

// guard runs fn and recovers a panic so a failing hook never breaks the
// host's loop. It reports whether fn returned normally.
func guard(log *zap.Logger, m *Metrics, name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.hookFailed(name)
			log.Error("hook failed", zap.String("hook", name), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
	return true
}
