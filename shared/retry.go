package shared

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Retry executes action up to maxAttempts times, re-attempting immediately on
// failure. The call site decides whether the exhausted error is fatal or the
// item is simply skipped. Each attempt is independent; failed attempts are
// logged as warnings.
func Retry(operationName string, maxAttempts int, action func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastError error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastError = action()
		if lastError == nil {
			return nil
		}

		if attempt < maxAttempts {
			logrus.WithFields(logrus.Fields{
				"operation": operationName,
				"attempt":   attempt,
				"max":       maxAttempts,
			}).Warnf("Attempt %d/%d for %s failed, retrying: %v", attempt, maxAttempts, operationName, lastError)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxAttempts, lastError)
}
