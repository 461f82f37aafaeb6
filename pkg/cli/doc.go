/*
Package cli holds the helpers shared by the llmproxy commands: output
formatting, signal handling and exit codes.

Output Formatting:

Commands that list things build a Table and render it in the format the
user asked for:

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"ID", "MODEL"}}
	table.Append("gpt-4-0", "gpt-4")
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ConfigError marks failures caused by the configuration file; ExitCode maps
them to exit status 2 and everything else to 1.
*/
package cli
