// typeload - loads every SQL Server data type through the bulk row stream
// and the parameterised execute path, then verifies what the server stored.
//
// Usage:
//
//	typeload [--config typeload.yaml] <command>
//
// Commands:
//
//	connect        connect, print the server version, disconnect
//	list           list the case catalog
//	setup          create missing fixture tables
//	run [case...]  run cases, all of them by default
//	config init    write a sample config file
//
// Environment:
//
//	SQL_AUTH_CONN_STRING  ADO connection string, overrides the config file
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp(os.LookupEnv, nil))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
