// Package txn runs multi-document MongoDB transactions with a graceful
// fallback for deployments that do not support them.
//
// Every membership transition touches several collections (the group's
// member_count, the group_members document, sometimes a join request,
// plus a system chat message). Those writes must land together, so they
// run inside one transaction. Standalone mongod instances (common in
// dev and CI) reject transactions; in that case the function is re-run
// outside a session, preserving write order but not atomicity.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Fn is the body of a transaction. It must be safe to retry: the driver
// may re-invoke it on transient transaction errors.
type Fn func(ctx context.Context) error

// WithTransaction runs fn inside a MongoDB multi-document transaction.
// If the server does not support transactions, fn is executed once
// directly and a warning is logged.
func WithTransaction(ctx context.Context, client *mongo.Client, log *zap.Logger, fn Fn) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		logFallback(log, err)
		return fn(ctx)
	}
	return err
}

func logFallback(log *zap.Logger, err error) {
	if log != nil {
		log.Warn("transactions unsupported; applying writes sequentially", zap.Error(err))
	}
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions (standalone mongod, some DocumentDB
// configurations).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// 20 IllegalOperation, 51 NoSuchTransaction variants,
		// 263 OperationNotSupportedInTransaction.
		if ce.Code == 20 || ce.Code == 51 || ce.Code == 263 {
			return true
		}
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "transaction") && strings.Contains(s, "replica set"):
		return true
	case strings.Contains(s, "session") && strings.Contains(s, "not supported"):
		return true
	case strings.Contains(s, "transaction") && strings.Contains(s, "session"):
		return true
	case strings.Contains(s, "illegal operation") && strings.Contains(s, "transaction"):
		return true
	}
	return false
}
