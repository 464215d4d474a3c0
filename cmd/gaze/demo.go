package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vango-dev/gaze/pkg/gaze"
)

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Show how an update cascades through watchers",
		Long: `Wire a source to watcher A, and watcher A to watcher B, then set
the source a few times and print every notification in order.`,
		Run: func(cmd *cobra.Command, args []string) {
			runDemo(cmd.OutOrStdout())
		},
	}
}

func runDemo(out io.Writer) {
	src := gaze.NewSource(0, nil)

	var a, b *gaze.Watcher
	name := func(o gaze.Observable) string {
		switch {
		case gaze.Same(o, src):
			return "source"
		case gaze.Same(o, a):
			return "A"
		case gaze.Same(o, b):
			return "B"
		}
		return "?"
	}

	a = gaze.NewWatcher(func(changed gaze.Observable) {
		fmt.Fprintf(out, "  A <- %s (value %d)\n", name(changed), src.Get())
	})
	b = gaze.NewWatcher(func(changed gaze.Observable) {
		fmt.Fprintf(out, "  B <- %s\n", name(changed))
	})
	defer a.Close()
	defer b.Close()

	a.Watch(src)
	b.Watch(a)

	for _, v := range []int{1, 1, 2} {
		fmt.Fprintf(out, "set %d\n", v)
		src.Set(v)
	}

	b.Close()
	fmt.Fprintln(out, "close B; set 3")
	src.Set(3)
}
