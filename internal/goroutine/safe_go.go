package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/lawnlink/lawncare-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
// Используется для best-effort побочных эффектов (уведомления, инвойсы),
// падение которых не должно ронять процесс и основной запрос.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\n%s", r, debug.Stack())
				}
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\n%s", r, debug.Stack())
				}
			}
		}()
		fn(ctx)
	}()
}
