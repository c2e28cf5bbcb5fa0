// cmd/tools/assistantctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"research-assistant/internal/common/config"
	commonhttp "research-assistant/internal/common/http"
	"research-assistant/internal/normalizer"
	"research-assistant/pkg/registry"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assistantctl",
		Short: "Inspect and query the research assistant",
		Long: `assistantctl turns raw agent webhook replies into the markdown the chat
panels show, and sends questions to a running gateway.

Usage:
  assistantctl normalize reply.json --shape
  assistantctl ask --panel wiki-search "What is RAG?"
  assistantctl tasks --config configs/config.yaml`,
		SilenceUsage: true,
	}
	root.AddCommand(newNormalizeCmd(), newAskCmd(), newTasksCmd())
	return root
}

func newNormalizeCmd() *cobra.Command {
	var (
		showShape   bool
		render      bool
		contentType string
	)
	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Normalize a captured webhook body to markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			body, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			if contentType == "" && isHTMLFile(path) {
				contentType = "text/html"
			}

			header := http.Header{}
			if contentType != "" {
				header.Set("Content-Type", contentType)
			}
			raw := commonhttp.DecodeBody(&commonhttp.Response{StatusCode: http.StatusOK, Header: header, Body: body})
			result := normalizer.New(normalizer.Options{}).Classify(raw)

			if err := write(cmd.OutOrStdout(), result.Text, render); err != nil {
				return err
			}
			if showShape {
				fmt.Fprintf(cmd.ErrOrStderr(), "shape: %s\n", result.Shape)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showShape, "shape", false, "Print the detected reply shape to stderr")
	cmd.Flags().BoolVar(&render, "render", false, "Render the markdown for the terminal")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the body (default: text/html for .html files)")
	return cmd
}

type chatReply struct {
	Reply   string `json:"reply"`
	Summary string `json:"summary"`
	Shape   string `json:"shape"`
	Failed  bool   `json:"failed"`
}

func newAskCmd() *cobra.Command {
	var (
		gatewayURL string
		panel      string
		session    string
		render     bool
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a message to a panel through the gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if panel == "" {
				return fmt.Errorf("--panel is required")
			}
			payload := map[string]string{"message": strings.Join(args, " ")}
			if session != "" {
				payload["sessionId"] = session
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := commonhttp.NewClient(timeout)
			url := strings.TrimRight(gatewayURL, "/") + "/api/chat/" + panel
			resp, err := client.PostJSON(ctx, url, payload, nil)
			if err != nil {
				return fmt.Errorf("%s", commonhttp.FailureMessage(err))
			}

			var reply chatReply
			if err := json.Unmarshal(resp.Body, &reply); err != nil {
				return fmt.Errorf("decode gateway reply: %w", err)
			}
			text := reply.Reply
			if text == "" {
				text = reply.Summary
			}
			return write(cmd.OutOrStdout(), text, render)
		},
	}
	cmd.Flags().StringVar(&gatewayURL, "gateway", "http://localhost:8080", "Gateway base URL")
	cmd.Flags().StringVar(&panel, "panel", "", "Panel id, e.g. wiki-search")
	cmd.Flags().StringVar(&session, "session", "", "Session id to continue a conversation")
	cmd.Flags().BoolVar(&render, "render", false, "Render the markdown for the terminal")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
	return cmd
}

// newTasksCmd lists the registered job types and, given a config, whether the
// manager would start a worker for each of them.
func newTasksCmd() *cobra.Command {
	var registryPath, configPath string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the job types the manager can serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}

			var app *config.Config
			if configPath != "" {
				if app, err = config.LoadFromFile(configPath); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			for _, a := range reg.Activities {
				fmt.Fprintf(w, "%s\t%s", a.TaskType, a.DisplayName)
				if app != nil {
					status := "disabled"
					if config.IsWorkerEnabled(app, a.TaskType) {
						status = "enabled"
					}
					fmt.Fprintf(w, "\t%s", status)
				}
				if len(a.Panels) > 0 {
					fmt.Fprintf(w, "\t%s", strings.Join(a.Panels, ","))
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&registryPath, "registry", "configs/activities.json", "Path to the activity registry")
	cmd.Flags().StringVar(&configPath, "config", "", "Application config used to report enabled workers")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func isHTMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

func write(w io.Writer, text string, render bool) error {
	if render {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		out, err := renderer.Render(text)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
