package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/logger"
)

// RecoveryHandler перехватывает panic в фоновых горутинах.
type RecoveryHandler struct {
	log logrus.FieldLogger
}

func NewRecoveryHandler(log logrus.FieldLogger) *RecoveryHandler {
	return &RecoveryHandler{log: log}
}

// SafeGo запускает fn в горутине с обработкой panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.recover()
		fn()
	}()
}

// SafeGoWithContext запускает fn с отдельным контекстом и таймаутом вызывающего.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer rh.recover()
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.log.WithField("stack", string(debug.Stack())).Errorf("panic в горутине: %v", r)
	}
}

var DefaultRecoveryHandler = NewRecoveryHandler(logger.Component("goroutine"))

func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
