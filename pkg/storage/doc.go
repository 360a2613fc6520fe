// Package storage holds the connections to the service's backing stores.
//
// PostgreSQL is the system of record and lives in the postgres subpackage:
// connection pooling, embedded migrations, transactions and driver error
// classification.
//
// Redis is optional. When configured it backs the shared rate limiter so
// several replicas enforce one budget:
//
//	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
//		URL:      cfg.Redis.URL,
//		PoolSize: cfg.Redis.PoolSize,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package storage
