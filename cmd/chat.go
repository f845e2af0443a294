package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashaai/asha/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	sessionID := uuid.NewString()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Asha career assistant. Type a question, or /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			sessionID = uuid.NewString()
			fmt.Fprintln(out, "Started a new session.")
			continue
		}

		res, err := a.Pipeline.Respond(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printTurn(cmd, res)
	}
	return scanner.Err()
}

// printTurn renders a completed turn for terminal output.
func printTurn(cmd *cobra.Command, res *pipeline.TurnResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Answer)

	if res.Assessment.Biased {
		fmt.Fprintf(out, "\n[reframed as: %s]\n", res.Assessment.Reframed)
	}
	if res.Degraded {
		fmt.Fprintln(out, "[note: the knowledge index was unavailable; this answer is not grounded in listings]")
	}
	if verbose && len(res.Sources) > 0 {
		fmt.Fprintf(out, "[sources: %s]\n", strings.Join(res.Sources, ", "))
	}
}
