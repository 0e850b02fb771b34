//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package main

// isTerminal always reports false where termios is unavailable, so input is
// processed in batch.
func isTerminal(fd int) bool { return false }
