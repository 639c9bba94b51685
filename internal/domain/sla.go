package domain

import "time"

// SLA defines response and resolution targets for a priority. Either
// duration may be absent, meaning no deadline of that kind.
type SLA struct {
	Name              string
	Priority          string
	Description       *string
	FirstResponseTime *time.Duration
	ResolutionTime    *time.Duration
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Priority is a routing label tickets and SLAs share.
type Priority struct {
	Name        string
	Description *string
	ColorCode   *string
	SortOrder   *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
