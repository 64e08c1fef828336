package logger

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

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

// WithJob возвращает entry с привязкой к заявке: единый ключ job_id во всех
// логах жизненного цикла, платёжного и retention-контуров.
func WithJob(jobID uuid.UUID) *logrus.Entry {
	return Log.WithField("job_id", jobID)
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
