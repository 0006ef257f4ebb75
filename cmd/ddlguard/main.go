// Command ddlguard makes PostgreSQL migration files safe to re-run.
package main

import "github.com/aqasim81/ddlguard/internal/cli"

func main() {
	cli.Execute()
}
