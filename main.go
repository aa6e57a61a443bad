package main

import "github.com/your-username/appsync-flow-simulator/internal/cli"

func main() {
	cli.Execute()
}
