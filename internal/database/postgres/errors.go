package postgres

import "errors"

// Sentinel errors returned by Pool and, for the draft/deployed-config
// cases, by the Postgres config store. Callers distinguish them with
// errors.Is; IsRetryable additionally classifies arbitrary driver errors.
var (
	ErrNotConnected     = errors.New("postgres: pool is not connected")
	ErrConnectionClosed = errors.New("postgres: pool is closed")
	ErrConnectionFailed = errors.New("postgres: failed to connect")
	ErrInvalidConfig    = errors.New("postgres: invalid configuration")
	ErrDraftNotFound    = errors.New("postgres: draft not found")
	ErrNoDeployedConfig = errors.New("postgres: no config has been deployed yet")
)

// retryableCodes are the Postgres SQLSTATE codes RetryExecutor treats as
// transient, mirroring the connection/serialization failure classes.
var retryableCodes = map[string]bool{
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// SQLStateError is satisfied by pgconn.PgError; kept narrow so this
// package does not need to import pgconn just to classify errors.
type SQLStateError interface {
	SQLState() string
}

// IsRetryable reports whether err carries a SQLSTATE code known to be
// transient, or wraps ErrConnectionFailed or ErrNotConnected. Context
// deadline errors are not treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr SQLStateError
	if errors.As(err, &pgErr) {
		return retryableCodes[pgErr.SQLState()]
	}
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrNotConnected)
}
