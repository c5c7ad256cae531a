// Package store defines the persistence interfaces for the application's
// entities. Concrete implementations live under internal/platform (currently
// PostgreSQL); consumers depend only on these interfaces.
package store
