package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/weighting-backend/internal/app"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/platform/ctxutil"
)

var (
	productFlag    string
	subProductFlag string

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:           "weighting",
	Short:         "Manage weighting plans and response weights",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		application = a
		application.Start()
		rd := &ctxutil.RunData{RunID: uuid.NewString(), Command: cmd.CommandPath()}
		cmd.SetContext(ctxutil.WithRunData(cmd.Context(), rd))
		application.Log.Debug("command started", "command", rd.Command, "run_id", rd.RunID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&productFlag, "product", "", "product short code (defaults to PRODUCT_SHORT_CODE)")
	rootCmd.PersistentFlags().StringVar(&subProductFlag, "sub-product", "", "sub-product id (defaults to SUB_PRODUCT_ID)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// execute runs c and closes the application whether or not the command
// failed, so spans of a failed run are still flushed.
func execute(ctx context.Context, c *cobra.Command) error {
	err := c.ExecuteContext(ctx)
	closeApplication()
	return err
}

func closeApplication() {
	if application == nil {
		return
	}
	application.Close()
	application = nil
}

var exitCodes = map[domainagg.ErrorCode]int{
	domainagg.CodeValidation:         2,
	domainagg.CodeInvalidOperation:   2,
	domainagg.CodeNotFound:           3,
	domainagg.CodeConflict:           4,
	domainagg.CodeInvariantViolation: 4,
	domainagg.CodePreconditionFailed: 4,
	domainagg.CodeRetryable:          75, // EX_TEMPFAIL
}

// exitCode lets scripts tell bad input from a missing node or a transient failure.
func exitCode(err error) int {
	if code, ok := exitCodes[domainagg.CodeOf(err)]; ok {
		return code
	}
	return 1
}

// commandScope resolves the scope from flags, falling back to the configured default.
func commandScope(cmd *cobra.Command) (types.Scope, error) {
	s := application.Cfg.DefaultScope
	if cmd.Flags().Changed("product") {
		s.ProductShortCode = strings.TrimSpace(productFlag)
	}
	if cmd.Flags().Changed("sub-product") {
		s.SubProductID = strings.TrimSpace(subProductFlag)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%w: pass --product or set PRODUCT_SHORT_CODE", err)
	}
	return s, nil
}

func requireSubset(subset string) (string, error) {
	subset = strings.TrimSpace(subset)
	if subset == "" {
		return "", fmt.Errorf("--subset is required")
	}
	return subset, nil
}
