//go:build !(js && wasm)

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "bigcalc-web runs in the browser: build it with `bigcalc site build` or GOOS=js GOARCH=wasm")
	os.Exit(1)
}
