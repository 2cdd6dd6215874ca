package main

import "github.com/vibast-solutions/ms-go-gocardless/cmd"

func main() {
	cmd.Execute()
}
