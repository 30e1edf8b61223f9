// Package main implements the gantry CLI tool.
// It deploys serverless applications to Google Cloud and keeps their remote
// resources in sync with the application manifest.
package main

import "github.com/gantryhq/gantry/cmd/gantry/cmd"

func main() {
	cmd.Execute()
}
