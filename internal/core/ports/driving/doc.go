// Package driving defines the interfaces that drive the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The CLI and the HTTP trigger call into the core through them.
package driving
