// tblmgrd is the table manager daemon.
//
// It loads a p4info, builds the runtime tables over an eBPF map or
// in-memory backend and serves table status and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/psaab/tblmgr/pkg/daemon"
	"github.com/psaab/tblmgr/pkg/dataplane"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "cleanup" {
		pinPath := "/sys/fs/bpf/tblmgr"
		if len(os.Args) > 2 {
			pinPath = os.Args[2]
		}
		if err := dataplane.Cleanup(pinPath); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup BPF: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("all pinned table maps removed")
		return
	}

	configFile := flag.String("config", "/etc/tblmgr/tblmgrd.toml", "configuration file path")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	d := daemon.New(daemon.Options{ConfigFile: *configFile})
	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tblmgrd: %v\n", err)
		os.Exit(1)
	}
}
