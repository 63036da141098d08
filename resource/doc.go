// Package resource bounds the concurrency and IO throughput of sweeps and
// allocation persistence.
package resource
