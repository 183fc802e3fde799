// Package main provides the cauldron CLI for planning and packaging multi-platform releases.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	command := os.Args[1]

	// Dispatch to subcommand
	var code int
	switch command {
	case "plan":
		code = runPlan(ctx, os.Args[2:])
	case "build":
		code = runBuild(ctx, os.Args[2:])
	case "validate-release":
		code = runValidateRelease(ctx, os.Args[2:])
	case "targets":
		code = runTargets(os.Args[2:])
	case "version", "--version":
		fmt.Println(version.Full())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		code = 2
	}
	stop()
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`cauldron - Release planner for multi-platform binaries

Usage:
  cauldron <command> [options]

Commands:
  plan              Plan a release and print its manifest
  build             Plan a release and run the packaging steps locally
  validate-release  Check a dist directory against the plan
  targets           List known targets and the build wrapper each needs
  version           Print version information

Use "cauldron <command> --help" for more information about a command.`)
}

// detectPlatform maps the running OS and architecture to a target triple
func detectPlatform() entities.TargetTriple {
	archMap := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
		"arm":   "armv7",
	}
	arch := archMap[runtime.GOARCH]
	if arch == "" {
		arch = runtime.GOARCH
	}

	switch runtime.GOOS {
	case "darwin":
		return entities.TargetTriple(arch + "-apple-darwin")
	case "windows":
		return entities.TargetTriple(arch + "-pc-windows-msvc")
	case "linux":
		if arch == "armv7" {
			return entities.TargetTriple(arch + "-unknown-linux-gnueabihf")
		}
		return entities.TargetTriple(arch + "-unknown-linux-gnu")
	default:
		return entities.TargetTriple(fmt.Sprintf("%s-unknown-%s", arch, runtime.GOOS))
	}
}
