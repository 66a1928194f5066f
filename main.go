package main

import "github.com/joshdurbin/strava-summary/internal/cmd"

func main() {
	cmd.Execute()
}
