// Package main is the entry point for tierguard, a free-tier usage
// monitor that turns a metered resource's remaining monthly allowance
// into a throttle signal.
package main

func main() {
	Execute()
}
