// Package main hosts the mangadrop CLI entrypoint and command graph.
//
// The Cobra command tree stages volumes and chapters in the cart, packages
// them into Kindle ebooks, and delivers them to the device or the local
// queue. It centralizes configuration resolution, logging setup, and the
// construction of the delivery pipeline so subcommands only translate
// arguments and render results.
package main
