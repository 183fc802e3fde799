package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/services"
)

func runTargets(args []string) int {
	fs := pflag.NewFlagSet("targets", pflag.ContinueOnError)
	host := fs.String("host", "", "Host triple to check cross-compilation from (default: the running platform)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	hostTarget := entities.TargetTriple(*host)
	if hostTarget == "" {
		hostTarget = detectPlatform()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TARGET\tFROM %s\n", hostTarget)
	for _, target := range entities.KnownTargets {
		wrapper, err := services.BuildWrapperFor(hostTarget, target)
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s\tunsupported\n", target)
		case wrapper == entities.WrapperNone:
			fmt.Fprintf(w, "%s\tnative\n", target)
		default:
			fmt.Fprintf(w, "%s\t%s\n", target, wrapper)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
