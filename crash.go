package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"dictate/log"
)

// initCrashLog routes fatal runtime output to crash_log.txt in the log
// directory, so a crash while running detached still leaves a trace.
func initCrashLog() {
	dir, err := log.ResolveDir(logPathFromArgs(os.Args[1:]))
	if err != nil {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

// logPathFromArgs finds --logpath before cobra has parsed anything.
func logPathFromArgs(args []string) string {
	for i, a := range args {
		if a == "--logpath" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--logpath="); ok {
			return v
		}
	}
	return ""
}
