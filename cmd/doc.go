// Package cmd implements the command-line interface of eeKV. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the eeKV server
//   - kv: Object operations (store, get, find, delete, list, ...) and a benchmark
//   - eeprom: Byte level access to the emulated EEPROM and row diagnostics
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the EEKV_ prefix
// (e.g. EEKV_TRANSPORT=tcp). Variables are read from .env and .env.local as well.
//
// See eekv -help for a list of all commands.
package cmd
