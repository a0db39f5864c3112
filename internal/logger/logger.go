package logger

import (
	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// WarnNegativeBalance пишет предупреждение об уходе кошелька в минус после возврата.
// Такой кошелёк требует ручной сверки оператором, это не ошибка системы.
func WarnNegativeBalance(ownerID string, balance int64) {
	if Log == nil {
		return
	}
	Log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"balance":  balance,
	}).Warn("Wallet balance is negative after refund")
}
