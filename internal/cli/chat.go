package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/bioviz-local/biocopilot/internal/analysis"
	"github.com/bioviz-local/biocopilot/internal/app"
	"github.com/bioviz-local/biocopilot/internal/config"
	"github.com/bioviz-local/biocopilot/internal/llm"
	"github.com/bioviz-local/biocopilot/internal/model"
)

var chatData string

func init() {
	chatCmd.RunE = runChat
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatData, "data", "", "CSV expression table to load on startup")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive analysis session with the model",
	Long: `Starts a REPL. Plain messages go to the model; tool calls it makes are
routed through the gateway. Confirm-risk actions wait for /confirm.

Commands:
  /load <path>     load a CSV expression table into the session
  /pending         list proposals awaiting confirmation
  /confirm <id>    confirm and execute a proposal
  /reject <id>     reject a proposal
  /capabilities    list registered capabilities
  /quit            exit`,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := app.New(configPath)
	if err != nil {
		return fmt.Errorf("failed to assemble gateway: %w", err)
	}
	defer a.Close()

	client, err := a.NewLLM()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.StartSweeper(ctx)

	// Hot-swap the model client when the config file changes.
	var clientMu sync.Mutex
	if reloader, err := config.NewReloader(configPath, func(cfg *config.Config) {
		fresh, err := app.NewClientFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "llm config invalid after reload: %v\n", err)
			return
		}
		clientMu.Lock()
		client = fresh
		clientMu.Unlock()
	}); err == nil && reloader != nil {
		go reloader.Run(ctx)
	}

	if chatData != "" {
		if err := loadData(a, chatData); err != nil {
			return err
		}
	}

	fmt.Println("biocopilot chat. /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	var history []llm.Message

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(a, line); quit {
				return nil
			}
			continue
		}

		history = append(history, llm.Message{Role: "user", Content: line})

		clientMu.Lock()
		c := client
		clientMu.Unlock()

		req, err := c.Complete(ctx, history, a.Gateway.Descriptors())
		if err != nil {
			fmt.Fprintf(os.Stderr, "model error: %v\n", err)
			continue
		}

		d := a.Gateway.Decide(ctx, req)
		printDecision(d)
		history = append(history, llm.Message{Role: "assistant", Content: d.Text})
	}
}

// runCommand handles a slash command. Returns true when the REPL should
// exit.
func runCommand(a *app.App, line string) bool {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(chatCmd.Long)

	case "/load":
		if len(rest) != 1 {
			fmt.Println("usage: /load <path>")
			break
		}
		if err := loadData(a, rest[0]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}

	case "/pending":
		pending := a.Gateway.Pending()
		if len(pending) == 0 {
			fmt.Println("No pending proposals.")
			break
		}
		fmt.Printf("%-38s %-20s %s\n", "ID", "CAPABILITY", "CREATED")
		for _, p := range pending {
			fmt.Printf("%-38s %-20s %s\n", p.ID, p.Capability, p.CreatedAt.Format("15:04:05"))
		}

	case "/confirm":
		if len(rest) != 1 {
			fmt.Println("usage: /confirm <id>")
			break
		}
		printDecision(a.Gateway.Confirm(context.Background(), rest[0]))

	case "/reject":
		if len(rest) != 1 {
			fmt.Println("usage: /reject <id>")
			break
		}
		printDecision(a.Gateway.Reject(rest[0]))

	case "/capabilities":
		printCapabilities(a)

	default:
		fmt.Printf("unknown command %s (try /help)\n", cmd)
	}
	return false
}

func loadData(a *app.App, path string) error {
	rows, err := analysis.LoadCSV(path)
	if err != nil {
		return err
	}
	a.Session.Load(rows)
	fmt.Printf("Loaded %d rows, %d significant at current thresholds.\n",
		len(rows), len(a.Session.SignificantGenes()))
	return nil
}

func printDecision(d model.Decision) {
	fmt.Println(d.Text)
	if d.Kind == model.KindProposed {
		fmt.Printf("  proposal %s — /confirm %s or /reject %s\n", d.ProposalID, d.ProposalID, d.ProposalID)
	}
}
