package dbops

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Number of attempts to connect to the database before giving up.
const connectionAttempts = 10

// Interval between the connection attempts.
var connectionRetryInterval = 2 * time.Second //nolint:gochecknoglobals

type dbLogger struct{}

// Hook run before SQL query execution.
func (d dbLogger) BeforeQuery(c context.Context, q *pg.QueryEvent) (context.Context, error) {
	query, err := q.FormattedQuery()
	if err == nil {
		log.WithField("query", string(query)).Debug("Executing SQL query")
	}
	return c, nil
}

// Hook run after SQL query execution.
func (d dbLogger) AfterQuery(c context.Context, q *pg.QueryEvent) error {
	return nil
}

// Creates a new database connection and checks that the database is
// reachable. The connection is retried a few times because the database
// is often started together with the agent.
func NewPgDBConn(settings *DatabaseSettings) (*PgDB, error) {
	opts, err := settings.PgParams()
	if err != nil {
		return nil, err
	}
	db := pg.Connect(opts)

	for tries := 0; tries < connectionAttempts; tries++ {
		if tries > 0 {
			time.Sleep(connectionRetryInterval)
		}
		var n int
		_, err = db.QueryOne(pg.Scan(&n), "SELECT 1")
		if err == nil {
			break
		}
		log.WithError(err).WithField("attempt", tries+1).Warn("Unable to connect to the database")
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "unable to connect to the database using provided credentials")
	}

	if settings.TraceSQL {
		db.AddQueryHook(dbLogger{})
	}

	log.WithFields(log.Fields{
		"host":     settings.Host,
		"port":     settings.Port,
		"database": settings.DBName,
	}).Info("Connected to database")
	return db, nil
}
