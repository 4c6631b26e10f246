package logger_test

import (
	"os"

	"github.com/maxkimambo/taskpool/internal/logger"
)

func Example_userAndOpStreams() {
	logger.SetupWithWriters(false, false, false, os.Stdout, os.Stderr)

	logger.User.Startingf("Running primes on %d workers", 2)
	logger.Op.WithFields(map[string]interface{}{"task_id": 3}).Info("Task finished")
	logger.User.Successf("%d of %d numbers are prime", 3, 5)

	// Output:
	// 🚀 Running primes on 2 workers
	// ✅ 3 of 5 numbers are prime
}
