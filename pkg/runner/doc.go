/*
Package runner drives an interactive question loop against one dataset.

Runner reads questions through an IOHandler, asks them and hands each final
workflow state back to the handler for display. TextHandler serves terminals
(optionally rendering answers as markdown); JSONHandler speaks JSON Lines for
scripts and other programs.

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx, assistant, "orders.sql"); err != nil {
		log.Fatal(err)
	}
*/
package runner
