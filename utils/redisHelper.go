package utils

import (
	"context"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mmdatafocus/invoice_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func redisListKey[T any](companyId int) string {
	return GetTypeName[T]() + "List:" + strconv.Itoa(companyId)
}

// StoreRedisList caches a company's list of T under TypeList:<companyId>.
func StoreRedisList[T any](ctx context.Context, list []*T, companyId int) error {
	return config.SetRedisObject(ctx, redisListKey[T](companyId), list, GetCacheLifespan())
}

// RetrieveRedisList returns nil when the list is not cached.
func RetrieveRedisList[T any](ctx context.Context, companyId int) ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(ctx, redisListKey[T](companyId), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RemoveRedisList[T any](ctx context.Context, companyId int) error {
	return config.RemoveRedisKey(ctx, redisListKey[T](companyId))
}
