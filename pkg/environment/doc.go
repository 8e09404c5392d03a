// Package environment carries the deployment environment through contexts,
// HTTP requests and log records.
package environment
