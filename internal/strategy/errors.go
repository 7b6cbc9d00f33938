package strategy

import "errors"

// Construction errors.
var (
	ErrDatabaseRequired  = errors.New("strategy: database name is required")
	ErrIndexRequired     = errors.New("strategy: index is required")
	ErrCustodianRequired = errors.New("strategy: custodian is required")
	ErrResolverRequired  = errors.New("strategy: content resolver is required")
)
