package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type startTimeKey string

// registerTimedCallbacks hooks before and after every GORM processor. The
// before hook stores the start time in the statement context under key; the
// after hook receives the elapsed time and the SQL operation. After hooks run
// ahead of otelgorm's so the statement span is still recording.
func registerTimedCallbacks(db *gorm.DB, prefix string, key startTimeKey, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	afterFor := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if start, ok := db.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			after(db, op, elapsed)
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register(prefix+":before_create", before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register(prefix+":before_query", before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register(prefix+":before_update", before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register(prefix+":before_row", before); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before); err != nil {
		return err
	}

	if err := cb.Create().After("gorm:create").Before("otel:after:create").Register(prefix+":after_create", afterFor("INSERT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Before("otel:after:query").Register(prefix+":after_query", afterFor("SELECT")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Before("otel:after:update").Register(prefix+":after_update", afterFor("UPDATE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Before("otel:after:delete").Register(prefix+":after_delete", afterFor("DELETE")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Before("otel:after:row").Register(prefix+":after_row", afterFor("")); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Before("otel:after:raw").Register(prefix+":after_raw", afterFor(""))
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
