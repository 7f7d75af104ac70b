/*
Package cli provides helpers shared by the vigil commands.

Output Formatting:

Command results are written as text, JSON, or CSV. Values that implement
Table render as aligned columns in text mode and as rows in CSV mode:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

Batch evaluation keeps a running tally on stderr:

	tally := cli.NewTally(os.Stderr, "sessions")
	tally.Begin(len(sessions))
	for _, s := range sessions {
		verdict, _ := eng.EvaluateSession(ctx, s)
		tally.Record(verdict.Level)
	}
	tally.Done()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
