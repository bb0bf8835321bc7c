//go:build !portaudio

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "livecall: built without portaudio support, rebuild with -tags portaudio")
	os.Exit(1)
}
