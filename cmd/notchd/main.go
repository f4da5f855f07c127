// Package main is the entry point for the notchd overlay daemon.
package main

func main() {
	Execute()
}
