package main

import "github.com/ngld/knossos/packages/cmkschema/cmd"

func main() {
	cmd.Execute()
}
