// Command memberctl administers member accounts directly against the
// configured store.
//
// Usage:
//
//	memberctl [-config path] [-v] <command> [flags] [args]
//
// Commands:
//
//	create-admin   ensure a super administrator exists (password prompted)
//	list-pending   list accounts awaiting approval
//	approve        approve pending accounts by id
//	reject         reject pending accounts by id
//	suspend        suspend active accounts by id
//	hash-password  print a bcrypt hash of a prompted password
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
