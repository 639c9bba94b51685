package domain

import "time"

// Customer is the accounting identity behind one or more contact handles.
type Customer struct {
	Name         string
	FullName     *string
	Email        *string
	Phone        *string
	Organization *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CustomerHandle maps a (channel, handle) pair such as an email address
// or phone number to a customer.
type CustomerHandle struct {
	ID        int64
	Customer  string
	Channel   string
	Handle    string
	CreatedAt time.Time
}
