package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: labctl <command> [flags]

commands:
  preview FILE   show headers, proposed mapping and the first rows of a sheet
  check FILE     convert and validate a sheet without storing it
  import FILE    convert, validate and store a sheet
  export         write every stored order to a workbook
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	code, err := dispatch(ctx, os.Args[1], os.Args[2:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labctl %s: %v\n", os.Args[1], err)
	}
	os.Exit(code)
}

func dispatch(ctx context.Context, cmd string, args []string, out io.Writer) (int, error) {
	var err error
	switch cmd {
	case "preview":
		err = runPreview(args, out)
	case "check":
		err = runCheck(args, out)
	case "import":
		err = runImport(ctx, args, out)
	case "export":
		err = runExport(ctx, args, out)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2, nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}
