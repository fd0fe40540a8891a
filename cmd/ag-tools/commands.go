package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ag-tools/internal/config"
	"ag-tools/internal/store"
	"ag-tools/internal/tools"

	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command>",
		Short: "Run a shell command with a deadline and a filtered environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"command": strings.Join(args, " ")}
			if cmd.Flags().Changed("timeout") {
				timeout, _ := cmd.Flags().GetInt("timeout")
				params["timeout"] = timeout
			}
			if dir, _ := cmd.Flags().GetString("working-dir"); dir != "" {
				params["working_dir"] = dir
			}
			return runTool(cmd, "exec", params)
		},
	}
	cmd.Flags().Int("timeout", config.DefaultExecTimeout, "Timeout in seconds for this call (1-1800)")
	cmd.Flags().String("working-dir", "", "Directory to run the command in")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web with Brave or Tavily",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"query": strings.Join(args, " ")}
			if cmd.Flags().Changed("count") {
				count, _ := cmd.Flags().GetInt("count")
				params["count"] = count
			}
			return runTool(cmd, "web_search", params)
		},
	}
	cmd.Flags().Int("count", config.DefaultSearchResults, "Number of results (1-10)")
	cmd.Flags().String("provider", "", "Search provider for this call (brave or tavily)")
	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a page and print its readable text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"url": args[0]}
			if cmd.Flags().Changed("max-chars") {
				maxChars, _ := cmd.Flags().GetInt("max-chars")
				params["max_chars"] = maxChars
			}
			return runTool(cmd, "web_fetch", params)
		},
	}
	cmd.Flags().Int("max-chars", config.DefaultFetchMaxChars, "Maximum characters to print")
	return cmd
}

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-args|-]",
		Short: "Dispatch a tool call the way an agent would",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := "{}"
			if len(args) == 2 {
				raw = args[1]
			}
			if raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read arguments: %w", err)
				}
				raw = string(data)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()
			res := a.registry.Dispatch(ctx, tools.Call{Name: args[0], Arguments: json.RawMessage(raw)})
			return a.print(cmd.OutOrStdout(), res)
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the OpenAI function definitions of every tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			payload, err := json.MarshalIndent(a.registry.OpenAITools(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent tool calls from the call history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return fmt.Errorf("call history is disabled; set store.path in the config file")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			toolName, _ := cmd.Flags().GetString("tool")
			records, err := a.store.Recent(cmd.Context(), toolName, limit)
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of calls to show")
	cmd.Flags().String("tool", "", "Only show calls to this tool")
	return cmd
}

// runTool dispatches one call through the registry so events and history
// behave exactly as they do for agent calls.
func runTool(cmd *cobra.Command, name string, params map[string]any) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		opts := searchOptions(a.cfg.Tools.Web.Search, a.logger)
		opts.Provider = provider
		a.registry.Register(tools.NewWebSearchTool(opts))
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	res := a.registry.Dispatch(ctx, tools.Call{Name: name, Arguments: raw})
	return a.print(cmd.OutOrStdout(), res)
}

func (a *app) print(w io.Writer, res tools.Result) error {
	if a.json {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, res.Output)
	}
	if res.Failed {
		return errToolFailed
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func printHistory(w io.Writer, records []store.CallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No tool calls recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTOOL\tSTATUS\tDURATION\tINPUT")
	for _, rec := range records {
		input := []rune(strings.ReplaceAll(rec.Input, "\n", " "))
		if len(input) > 60 {
			input = append(input[:57], []rune("...")...)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n", rec.StartedAt.Local().Format("2006-01-02 15:04:05"), rec.ToolName, rec.Status, rec.DurationMs, string(input))
	}
	_ = tw.Flush()
}
