// blogctl is the operator CLI for the blog post API: migrations, seed data
// and event inspection.
package main

import "github.com/blogpost/blogpost/internal/cli"

func main() {
	cli.Execute()
}
