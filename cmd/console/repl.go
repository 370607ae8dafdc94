package console

import (
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var (
	colorPrompt = color.New(color.FgBlue, color.Bold)
	colorError  = color.New(color.FgRed, color.Bold)
	colorResult = color.New(color.FgGreen)
)

// runRepl drives the controller from a readline prompt, for sessions
// without a TTY capable of the full tree view (piped input, --repl).
func runRepl(c *Controller, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          colorPrompt.Sprint("binsizer> "),
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(out, Describe(c.Current()))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch line {
		case "quit", "exit":
			return nil
		case "":
			continue
		}

		result, err := c.Eval(line)
		if err != nil {
			colorError.Fprintln(out, err)
			continue
		}
		colorResult.Fprintln(out, result)
	}
}
