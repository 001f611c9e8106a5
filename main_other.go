//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// before any cgo code runs
	initCrashLog()
	// global hotkeys on macOS must be registered from the main thread
	mainthread.Init(execute)
}
