package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitemirror/internal/mirror"
)

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <task.json|->",
		Short: "Execute one task and print its result",
		Long: `Reads a task document from a file, or from stdin when the argument is "-",
runs it against the configured mirror backend and prints the result as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runExecCommand,
	}
}

func runExecCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := readTaskInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	task, err := mirror.DecodeTask(raw)
	if err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	result, err := appInstance.Executor().Execute(cmd.Context(), task)
	if err != nil {
		return fmt.Errorf("execute %s task: %w", task.Type(), err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func readTaskInput(stdin io.Reader, arg string) ([]byte, error) {
	if arg == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read task from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return raw, nil
}
