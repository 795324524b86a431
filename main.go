package main

import "github.com/beaconhq/beacon/cmd"

func main() {
	cmd.Execute()
}
