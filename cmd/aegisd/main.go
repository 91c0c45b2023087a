package main

import "github.com/ledgerdesk/aegis/internal/cli"

func main() {
	cli.Execute()
}
