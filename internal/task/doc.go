// Package task implements the background job engine: the handler registry,
// the worker pool that drains pending tasks from the store, the startup
// recovery pass for tasks interrupted by a crash, and the task handlers
// themselves.
package task
