// Package main hosts the mediasort CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into migration
// passes, filename classification checks, hash index maintenance and
// configuration scaffolding. It centralizes configuration resolution and
// logging setup so subcommands only wire flags to internal packages.
//
// Keep this package lean: new behavior belongs in the internal packages first
// and is surfaced here through dedicated commands or flags.
package main
