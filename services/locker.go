package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// lockWaitSeconds bounds how long a caller waits for another operation
// on the same submission before giving up with ErrLockTimeout.
const lockWaitSeconds = 10

func submissionLockName(submissionID uint) string {
	return fmt.Sprintf("ethics_submission_%d", submissionID)
}

// WithSubmissionLock runs fn inside a transaction while holding a MySQL
// named lock keyed by submission id. Concurrent review submissions,
// assignments, and conflict declarations for the same submission
// serialize here; callers must re-read state through tx rather than
// reuse reads taken before the lock.
//
// GET_LOCK is session-scoped; the lock is taken and released on the
// same pinned connection the transaction runs on. RELEASE_LOCK fires
// only after Transaction returns, so the lock stays held across COMMIT
// and the next holder always sees the committed writes.
func (s *GormStore) WithSubmissionLock(ctx context.Context, submissionID uint, fn func(tx Store) error) error {
	name := submissionLockName(submissionID)
	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var got int
		if err := conn.Raw("SELECT GET_LOCK(?, ?)", name, lockWaitSeconds).Scan(&got).Error; err != nil {
			return fmt.Errorf("failed to acquire submission lock: %w", err)
		}
		if got != 1 {
			return ErrLockTimeout
		}
		defer func() {
			var released int
			_ = conn.Raw("SELECT RELEASE_LOCK(?)", name).Scan(&released).Error
		}()

		return conn.Transaction(func(tx *gorm.DB) error {
			return fn(&GormStore{db: tx})
		})
	})
}
