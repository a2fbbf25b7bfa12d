package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic гасит панику обработчика апдейта, чтобы один кривой
// апдейт не ронял весь бот. Вызывать через defer с ID апдейта.
func RecoverFromPanic(updateID int) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": "panic_recovery",
			"update_id": updateID,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
