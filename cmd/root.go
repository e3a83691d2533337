package cmd

type Context struct {
	Debug bool
}

var CLI struct {
	Debug bool `help:"Enable debug mode"`

	Serve   ServeCmd   `cmd:"" default:"1"                    help:"Run the server"`
	Migrate MigrateCmd `cmd:"" help:"Run database migrations"`
	Scan    ScanCmd    `cmd:"" help:"Scan stored venues for coordinate problems"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a single venue reference"`
}
