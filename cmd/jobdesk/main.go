package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"jobdesk/internal/app"
	"jobdesk/internal/comparison"
	"jobdesk/internal/config"
	"jobdesk/internal/db"
	"jobdesk/internal/domain"
	"jobdesk/internal/engine"
	"jobdesk/internal/logging"
	"jobdesk/internal/migrate"
	"jobdesk/internal/repo"
	"jobdesk/internal/server"
	"jobdesk/internal/tools"
)

var rootCmd = &cobra.Command{
	Use:   "jobdesk",
	Short: "Jobdesk CLI",
	Long: `Jobdesk answers questions about construction jobs through a fixed set of tools.
- Job: one imported job document (estimate, schedule, milestones, cost codes, flooring data).
- Tools: named queries an assistant or a person can run against the active job.
- Comparison: budget vs consumed figures fetched from the comparison service on demand.
- History: every tool call is recorded; view it with 'jobdesk history'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("JOBDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("job", "", "job id (overrides config default)")
	rootCmd.PersistentFlags().String("comparison-url", "", "comparison service base URL (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("job", rootCmd.PersistentFlags().Lookup("job"))
	_ = viper.BindPFlag("comparison-url", rootCmd.PersistentFlags().Lookup("comparison-url"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(briefCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage jobdesk.yml",
		Long:  "Config names the company whose jobs are served, the comparison service, the API listener and logging. It lives in jobdesk.yml inside the workspace.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var company string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default jobdesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(company) == "" {
				return fmt.Errorf("--company required")
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(company)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company id")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate jobdesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func jobCmd() *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Manage stored jobs"}
	job.AddCommand(jobImportCmd())
	job.AddCommand(jobListCmd())
	job.AddCommand(jobSearchCmd())
	job.AddCommand(jobShowCmd())
	job.AddCommand(jobDeleteCmd())
	return job
}

func jobImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a job document (JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				job, err := e.ImportJob(ctx, data)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(job.Summary())
				}
				fmt.Printf("Imported %s (%s): %d tasks, %d estimate rows", job.DocumentID, job.ProjectTitle, len(job.Schedule), len(job.Estimate))
				if job.Dropped > 0 {
					fmt.Printf(", %d malformed rows skipped", job.Dropped)
				}
				fmt.Println()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "job document path, - for stdin")
	return cmd
}

func jobListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				recs, err := e.Repo.ListJobs(ctx, e.Config.Company.ID, limit)
				if err != nil {
					return err
				}
				items := make([]domain.JobSummary, 0, len(recs))
				for _, rec := range recs {
					items = append(items, rec.Summary)
				}
				return printJobs(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max jobs")
	return cmd
}

func jobSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search jobs by title, client, street or prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.SearchJobs(ctx, e.Config.Company.ID, args[0])
				if err != nil {
					return err
				}
				return printJobs(items)
			})
		},
	}
}

func jobShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [job-id]",
		Short: "Show a job document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := viper.GetString("job")
			if len(args) == 1 {
				override = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				jobID, err := app.ResolveJob(ctx, e.Config, override, e.Repo)
				if err != nil {
					return err
				}
				job, err := e.Repo.GetJob(ctx, e.Config.Company.ID, jobID)
				if err != nil {
					return err
				}
				return printJSON(job)
			})
		},
	}
}

func jobDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a stored job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.DeleteJob(ctx, e.Config.Company.ID, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func toolsCmd() *cobra.Command {
	t := &cobra.Command{Use: "tools", Short: "Inspect the tool catalogue"}
	t.AddCommand(toolsListCmd())
	return t
}

func toolsListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := engine.Catalog(nil, nil)
			var list []*tools.Tool
			if category != "" {
				list = reg.GetByCategory(tools.Category(category))
			} else {
				list = reg.All()
			}
			if viper.GetBool("json") {
				defs := make([]tools.Definition, 0, len(list))
				for _, t := range list {
					defs = append(defs, t.Definition())
				}
				return printJSON(defs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Name", "Category", "Required", "Description"})
			for _, t := range list {
				def := t.Definition()
				desc := def.Description
				if len(desc) > 70 {
					desc = desc[:67] + "..."
				}
				tw.AppendRow(table.Row{def.Name, def.Category, strings.Join(def.Parameters.Required, ","), desc})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}

func askCmd() *cobra.Command {
	var pairs []string
	var rawArgs string
	cmd := &cobra.Command{
		Use:   "ask <tool>",
		Short: "Run one tool against the active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs, pairs)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				jobID, err := app.ResolveJob(ctx, e.Config, viper.GetString("job"), e.Repo)
				if err != nil && args[0] != "search_jobs" {
					return err
				}
				exec, err := e.Execute(ctx, engine.Request{JobID: jobID, Tool: args[0], Args: toolArgs})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(exec)
				}
				if err := printJSON(exec.Result); err != nil {
					return err
				}
				if exec.IsError {
					return fmt.Errorf("%s reported an error", exec.Tool)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	return cmd
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Run tool calls read from stdin, one per line",
		Long:  "Each line is '<tool> [json-args]'. Loading another job with get_current_job_data switches the active job for the following lines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				jobID, _ := app.ResolveJob(ctx, e.Config, viper.GetString("job"), e.Repo)
				s := &engine.Session{Engine: e, JobID: jobID}
				return runSession(ctx, s, os.Stdin, os.Stdout)
			})
		},
	}
}

func runSession(ctx context.Context, s *engine.Session, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tool, rest, _ := strings.Cut(line, " ")
		args, err := parseToolArgs(rest, nil)
		if err != nil {
			return fmt.Errorf("line %q: %w", line, err)
		}
		exec, err := s.Call(ctx, tool, args)
		if err != nil {
			return err
		}
		if err := enc.Encode(exec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func briefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Show status, payments and budget position of the active job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				jobID, err := app.ResolveJob(ctx, e.Config, viper.GetString("job"), e.Repo)
				if err != nil {
					return err
				}
				b, err := e.Brief(ctx, jobID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				fmt.Printf("Job: %s\n", b.JobID)
				fmt.Println("Tasks:")
				keys := make([]string, 0, len(b.Status))
				for k := range b.Status {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %s: %v\n", k, b.Status[k])
				}
				fmt.Println("Payments:")
				if err := printJSON(b.Payments); err != nil {
					return err
				}
				fmt.Println("Comparison:")
				return printJSON(b.Comparison)
			})
		},
	}
}

func historyCmd() *cobra.Command {
	var f repo.ExecutionFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded tool calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.JobID == "" {
					f.JobID = viper.GetString("job")
				}
				execs, err := e.History(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(execs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Job", "Tool", "Error", "Duration (ms)", "Switched To"})
				for _, x := range execs {
					tw.AppendRow(table.Row{x.TS, x.JobID, x.Tool, x.IsError, x.DurationMs, x.SwitchedJobID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Tool, "tool", "", "tool filter")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 20, "max entries")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if addr == "" {
					addr = e.Config.Server.Addr
				}
				if basePath == "" {
					basePath = e.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Logger: e.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				e.Logger.Info("serving jobdesk api",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.String("company_id", e.Config.Company.ID),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default /v0)")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	overlay := false
	if u := viper.GetString("comparison-url"); u != "" {
		cfg.Comparison.BaseURL = u
		overlay = true
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		overlay = true
	}
	if overlay {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		return err
	}
	cmp := comparison.New(cfg.Comparison.BaseURL, cfg.Comparison.Timeout.Std(), logger)
	e := engine.New(conn, cfg, cmp, logger)
	return fn(ctx, e)
}

// parseToolArgs merges a JSON object with key=value pairs. Pair values are
// read as JSON when they parse (numbers, booleans) and as strings otherwise.
func parseToolArgs(raw string, pairs []string) (map[string]any, error) {
	args := map[string]any{}
	if raw = strings.TrimSpace(raw); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("args must be a JSON object: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", p)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			args[k] = parsed
		} else {
			args[k] = v
		}
	}
	return args, nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJobs(items []domain.JobSummary) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Client", "Site", "Status", "Created"})
	for _, j := range items {
		site := strings.TrimSpace(strings.Join([]string{j.SiteStreet, j.SiteCity}, " "))
		tw.AppendRow(table.Row{j.DocumentID, j.ProjectTitle, j.ClientName, site, j.Status, j.CreatedDate})
	}
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
