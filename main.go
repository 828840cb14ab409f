// The main package for the newsharvester executable.
package main

import (
	"newsharvester/cmd"
)

func main() {
	cmd.Execute()
}
