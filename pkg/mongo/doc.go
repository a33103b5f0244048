// Package mongo provides MongoDB connection management for the document
// store backing orders, products, users, and notifications.
//
// Configuration is entirely environment-driven, connection establishment
// retries transient failures with a bounded budget, and Healthcheck exposes
// a Ping-based probe for the HTTP health endpoint.
package mongo
