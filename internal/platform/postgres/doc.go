// Package postgres provides PostgreSQL implementations of the store
// interfaces, running over database/sql with the pgx stdlib driver.
package postgres
