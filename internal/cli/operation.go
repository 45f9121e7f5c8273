package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/mailbox-bulkops/internal/app"
	"github.com/ignite/mailbox-bulkops/internal/batch"
	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/gmail"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
	"github.com/ignite/mailbox-bulkops/internal/telemetry"
)

// ErrNoToken is returned when neither --token nor the environment supplies one.
var ErrNoToken = errors.New("no access token: pass --token or set " + TokenEnv)

// ExitError carries the process exit code for an unsuccessful operation.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// Exit codes for unsuccessful operations.
const (
	ExitPartialFailure  = 2
	ExitCompleteFailure = 3
)

type operationFlags struct {
	idsFile string
	strict  bool
	add     []string
	remove  []string
}

func newDeleteCmd(g *globalFlags, opts app.Options) *cobra.Command {
	of := &operationFlags{}
	cmd := &cobra.Command{
		Use:   "delete [message-id...]",
		Short: "Permanently delete messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := collectIDs(cmd.InOrStdin(), of.idsFile, args)
			if err != nil {
				return err
			}
			return runOperation(cmd, g, of, opts, batch.NewDeleteRequest(g.user, ids))
		},
	}
	addOperationFlags(cmd, of)
	return cmd
}

func newModifyCmd(g *globalFlags, opts app.Options) *cobra.Command {
	of := &operationFlags{}
	cmd := &cobra.Command{
		Use:   "modify [message-id...]",
		Short: "Add and remove labels on messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := collectIDs(cmd.InOrStdin(), of.idsFile, args)
			if err != nil {
				return err
			}
			changes := batch.LabelChanges{Add: of.add, Remove: of.remove}
			return runOperation(cmd, g, of, opts, batch.NewModifyLabelsRequest(g.user, ids, changes))
		},
	}
	addOperationFlags(cmd, of)
	cmd.Flags().StringSliceVar(&of.add, "add", nil, "label id to add (repeatable)")
	cmd.Flags().StringSliceVar(&of.remove, "remove", nil, "label id to remove (repeatable)")
	return cmd
}

func addOperationFlags(cmd *cobra.Command, of *operationFlags) {
	cmd.Flags().StringVar(&of.idsFile, "ids-file", "", "file with one message id per line, - for stdin")
	cmd.Flags().BoolVar(&of.strict, "strict", false, "treat any failed item as an error (overrides config)")
}

func runOperation(cmd *cobra.Command, g *globalFlags, of *operationFlags, opts app.Options, req batch.OperationRequest) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFromEnv(g.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	logger.InitWriter(cmd.ErrOrStderr(), logger.ParseLevel(cfg.Logging.Level), g.human || cfg.Logging.Human)
	logger.SetRedactPII(cfg.Logging.ShouldRedactPII())

	_, shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	token := g.token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if token == "" {
		return ErrNoToken
	}

	a := app.New(ctx, cfg, opts)
	defer a.Close()

	strict := cfg.Batch.FailOnPartialFailure
	if cmd.Flags().Changed("strict") {
		strict = of.strict
	}

	result, verr := a.Service.Execute(ctx, gmail.BearerToken(token), req, strict)
	if result == nil {
		return verr
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Summary()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	switch {
	case verr == nil:
		return nil
	case errors.Is(verr, batch.ErrCompleteFailure):
		return &ExitError{Code: ExitCompleteFailure, Err: verr}
	case errors.Is(verr, batch.ErrPartialFailure):
		return &ExitError{Code: ExitPartialFailure, Err: verr}
	default:
		return verr
	}
}

// collectIDs merges ids from positional args and an optional ids file.
// Blank lines and lines starting with # are skipped.
func collectIDs(stdin io.Reader, path string, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			ids = append(ids, a)
		}
	}
	if path == "" {
		return ids, nil
	}

	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open ids file: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}
