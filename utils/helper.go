package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/sirupsen/logrus"
)

// ErrLockBusy is returned when another request holds the company lock for
// longer than the retry window.
var ErrLockBusy = errors.New("another save is in progress, try again")

const lockTTL = 30 * time.Second

// CompanyLock serializes one kind of write per company across instances.
// The returned release func must be called once the guarded work is
// committed. Without Redis the lock degrades to a no-op and the database
// unique indexes remain the last line of defence.
func CompanyLock(ctx context.Context, companyId int, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{
			"module":     moduleName,
			"funcName":   functionName,
			"company_id": companyId,
		}).Warn("redis lock not ready; proceeding without lock")
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("%s:%d", lockType, companyId)
	lock, err := locker.Obtain(ctx, lockKey, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "could not obtain company lock", lockKey, err)
		return nil, ErrLockBusy
	}
	if err != nil {
		config.LogError(logger, moduleName, functionName, "error obtaining company lock", lockKey, err)
		return nil, err
	}
	return func() {
		// release on a fresh context so a cancelled request still frees the key
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(logger, moduleName, functionName, "release company lock", lockKey, err)
		}
	}, nil
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func NewCorrelationId() string {
	return uuid.NewString()
}
