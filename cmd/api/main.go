package main

// Set via ldflags at build time.
var version = "dev"

func main() {
	Execute()
}
