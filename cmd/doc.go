// Package cmd implements the command-line interface of dODM. Every command group
// bootstraps the configured backends before running and closes them afterwards.
//
// The package is organized into several subpackages:
//
//   - model: Commands for model operations (kinds, get, create, set, delete, find, drop)
//   - session: Commands for the session directory (register, login, token, logout)
//   - helpdesk: Commands for the helpdesk queue (submit, len, serve)
//   - cache: Commands for inspecting the cache (keys)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dodm -help for a list of all commands.
package cmd
