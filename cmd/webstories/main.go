package main

import cmd "github.com/rohmanhakim/webstory-importer/internal/cli"

func main() {
	cmd.Execute()
}
