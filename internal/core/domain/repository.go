package domain

import "context"

// UserFetcher retrieves a single user record from the upstream generator
type UserFetcher interface {
	FetchUser(ctx context.Context) (*UserRecord, error)
}
