// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/envboot/cmd/envboot/cmd"
)

func main() {
	cmd.Execute()
}
