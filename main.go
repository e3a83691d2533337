package main

import (
	"github.com/alecthomas/kong"

	"droscher.com/GroundsKeeper/cmd"
)

func main() {
	ctx := kong.Parse(&cmd.CLI, kong.Name("GroundsKeeper"), kong.Description("GroundsKeeper resolves venue identities and corrects their geocoding."))
	err := ctx.Run(&cmd.Context{Debug: cmd.CLI.Debug})
	ctx.FatalIfErrorf(err)
}
