package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// AuthPath groups the account endpoints.
	AuthPath = "/auth"

	// ErrNilDepsFatalLogMsg is used if router or one of the dependencies is nil.
	ErrNilDepsFatalLogMsg = "router or handler dependencies are nil"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize = 100
)
