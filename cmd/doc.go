// Package cmd implements the command-line interface of dGrid. It provides a
// hierarchical command structure for running a member and for interacting
// with it as a client.
//
// The package is organized into several subpackages:
//
//   - maps: Commands for map operations (put, get, remove, size, perf, etc.)
//   - lock: Commands for locking operations (acquire, release)
//   - serve: Command for starting and configuring a dGrid member
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dgrid -help for a list of all commands.
package cmd
