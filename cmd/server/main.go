// Package main implements the relay-api server: a single-process background
// job engine that watches Reddit inboxes for subscribed customers and pushes
// notifications, fronted by a small dashboard API.
package main

import (
	"log"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}
