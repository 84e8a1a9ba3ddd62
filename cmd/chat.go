package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"invoiceai/internal/assistant"
	"invoiceai/internal/logger"
	"invoiceai/internal/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Draft an invoice in an interactive conversation",
	Long: `Start an interactive conversation with the invoice assistant.

Type what you want to invoice; the assistant asks for whatever is missing and
updates the draft as you answer. The conversation keeps its selected draft
until you exit. Type "exit" or press Ctrl-D to leave.

Required environment variables:
  OPENAI_API_KEY - OpenAI API key used by the assistant`,
	Example: `  # Chat as the configured TEST_USER_ID
  invoiceai chat

  # Chat as a specific user and show each tool call
  invoiceai chat --user user-123 --verbose`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().BoolP("verbose", "v", false, "Print the tools the assistant calls")
}

func runChat(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("chat")

	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, cancel := createContext(0, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	runner, err := a.assistant()
	if err != nil {
		return handleCommandError(err, log)
	}

	turn := assistant.Turn{
		Caller: tools.Caller{OwnerID: a.caller.ID, ConversationID: uuid.NewString()},
	}

	log.Info().
		Str("caller", a.caller.String()).
		Str("conversation_id", turn.Caller.ConversationID).
		Msg("Starting chat")

	fmt.Println("InvoiceAI - tell me what you'd like to invoice. Type \"exit\" to quit.")
	return chatLoop(ctx, runner, turn, os.Stdin, os.Stdout, verbose)
}

func chatLoop(ctx context.Context, runner *assistant.Assistant, turn assistant.Turn, in io.Reader, out io.Writer, verbose bool) error {
	log := logger.WithComponent("chat")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		turn.Messages = append(turn.Messages, assistant.Message{Role: "user", Content: line})
		reply, err := runner.Run(ctx, turn)
		switch {
		case errors.Is(err, assistant.ErrStepLimit):
			fmt.Fprintln(out, "(I stopped after too many steps; the changes so far are saved.)")
		case err != nil:
			// Drop the unanswered message so the transcript stays alternating.
			turn.Messages = turn.Messages[:len(turn.Messages)-1]
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", handleCommandError(err, log))
			continue
		}
		if reply == nil {
			continue
		}

		if verbose {
			for _, call := range reply.ToolCalls {
				fmt.Fprintf(out, "  [%s %s]\n", call.Name, string(call.Arguments))
			}
		}
		if reply.Content != "" {
			fmt.Fprintln(out, reply.Content)
			turn.Messages = append(turn.Messages, assistant.Message{Role: "assistant", Content: reply.Content})
		}
	}
}
