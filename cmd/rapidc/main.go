package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/tliron/commonlog/simple"
)

const usage = "usage: rapidc <path_of_your_project>"

// errUsage marks command-line mistakes; they exit with status 2.
var errUsage = errors.New("wrong number of arguments")

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
