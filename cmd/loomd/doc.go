// Package main hosts the loomd daemon entrypoint.
//
// The daemon loads configuration, opens the queue store, wires configured
// external stage commands into the worker pool, and runs until interrupted.
package main
