package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/mikeboe/finance-assistant/pkg/app"
	"github.com/mikeboe/finance-assistant/pkg/chat"
	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/mikeboe/finance-assistant/pkg/server"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finance-assistant",
		Short: "A terminal-based finance research assistant",
		Long:  `finance-assistant answers questions about trading strategies, indicators, market conditions and finance research papers using a knowledge base of ArXiv papers.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts := &slog.HandlerOptions{}
			if debug {
				opts.Level = slog.LevelDebug
			}
			// MCP stdio owns stdout.
			out := io.Writer(os.Stdout)
			if cmd.Name() == "mcp" {
				out = os.Stderr
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(out, opts)))
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default ./finance-assistant.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(chatCmd(), toolCmd(), toolsCmd(), pingCmd(), mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Chat == nil {
				return errors.New("chat requires GOOGLE_API_KEY")
			}

			sess, err := a.Chat.NewSession(ctx)
			if err != nil {
				return err
			}
			return repl(ctx, a, sess, os.Stdin, cmd.OutOrStdout())
		},
	}
}

func repl(ctx context.Context, a *app.App, sess *chat.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n%s\n", a.Config.AppTitle, a.Config.AppDescription)
	if a.Registry.Degraded() {
		fmt.Fprintln(out, "Knowledge base is not configured; tools answer with placeholders.")
	}
	fmt.Fprintln(out, "\nTry one of these:")
	for i, s := range a.Chat.Suggestions() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, s)
	}
	fmt.Fprintln(out, "\nCommands: /history, /clear, /exit. A number picks a suggestion.")

	suggestions := a.Chat.Suggestions()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			if err := sess.ClearHistory(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		case "/history":
			msgs, err := sess.History(ctx)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
			}
			continue
		}

		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(suggestions) {
			line = suggestions[n-1]
			fmt.Fprintf(out, "> %s\n", line)
		}

		reply, err := sess.Chat(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", reply)
	}
}

func toolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool <name> [json-arguments]",
		Short: "Invoke a single finance tool",
		Example: `  finance-assistant tool search_indicator_strategies '{"indicator_name":"RSI","timeframe":"1d"}'
  finance-assistant tool find_research_papers '{"topic":"behavioral finance","year_from":2022}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.Registry.Spec(args[0]); !ok {
				return fmt.Errorf("unknown tool %q", args[0])
			}
			var raw json.RawMessage
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.Registry.Invoke(cmd.Context(), args[0], raw))
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools and their arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, spec := range finance.NewRegistry(nil).Specs() {
				fmt.Fprintf(out, "%s\n  %s\n", spec.Name, spec.Description)
				for _, arg := range spec.Arguments {
					req := "optional"
					if arg.Required {
						req = "required"
					}
					fmt.Fprintf(out, "    - %s (%s, %s): %s", arg.Name, arg.Type, req, arg.Description)
					if arg.Default != nil {
						fmt.Fprintf(out, " [default: %v]", arg.Default)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the knowledge base connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Registry.Ping(cmd.Context())
			if res.Failed() {
				return fmt.Errorf("knowledge base unavailable: %s", res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Knowledge base connection OK")
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the finance tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return server.ServeStdio(ctx, server.NewMCPServer(a.Registry))
		},
	}
}
