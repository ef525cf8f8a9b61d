package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "truthx:", err)
		}
		os.Exit(1)
	}
}
