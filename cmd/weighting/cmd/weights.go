package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/services"
)

var (
	weightsSubset string
	weightsPath   string
)

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.PersistentFlags().StringVar(&weightsSubset, "subset", "", "subset id")
	weightsImportCmd.Flags().StringVar(&weightsPath, "path", "", "target path as variable=instance pairs, e.g. gender=2,region=10 (empty for the subset root)")

	weightsCmd.AddCommand(
		weightsImportCmd,
		weightsShowRootCmd,
		weightsClearCmd,
		weightsClearTargetCmd,
	)
}

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Import and remove response weights",
}

var weightsImportCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Import respondent weights from a CSV with ResponseId and Weighting columns",
	Long:  "Replaces the weights of the target at --path, or of the subset root when --path is empty. Targets missing along the path are added to the subset's plans. Blank weights import as 1.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(weightsSubset)
		if err != nil {
			return err
		}
		path, err := parseTargetPath(weightsPath)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		rows, err := services.ReadRespondentWeights(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		res, err := application.Services.WeightingImport.Import(cmd.Context(), scope, services.WeightingImport{
			SubsetID: subset,
			Path:     path,
			Weights:  rows,
		})
		if err != nil {
			return err
		}
		where := "subset root"
		if res.TargetID != nil {
			where = "target " + res.TargetID.String()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d weights for %s (replaced=%t, targets added=%d)\n", res.WeightCount, where, res.Replaced, res.TargetsAdded)
		return nil
	},
}

var weightsShowRootCmd = &cobra.Command{
	Use:   "show-root",
	Short: "Print the subset's root weights as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(weightsSubset)
		if err != nil {
			return err
		}
		root, err := application.Aggregates.ResponseWeighting.GetRootResponseWeightingContextWithWeightsForSubset(cmd.Context(), scope, subset)
		if err != nil {
			return err
		}
		if root == nil {
			return fmt.Errorf("subset %s has no root weights", subset)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s,%s\n", services.ResponseIDColumn, services.WeightColumn)
		for _, w := range root.Weights {
			fmt.Fprintf(out, "%d,%s\n", w.RespondentID, w.Weight.String())
		}
		return nil
	},
}

var weightsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every response weighting context of the subset, root included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(weightsSubset)
		if err != nil {
			return err
		}
		n, err := application.Aggregates.ResponseWeighting.DeleteResponseWeights(cmd.Context(), scope, subset)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d contexts\n", n)
		return nil
	},
}

var weightsClearTargetCmd = &cobra.Command{
	Use:   "clear-target TARGET_ID",
	Short: "Delete the response weights of one target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(weightsSubset)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid target id: %w", err)
		}
		deleted, err := application.Aggregates.ResponseWeighting.DeleteResponseWeightsForTarget(cmd.Context(), scope, subset, id)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Fprintln(cmd.OutOrStdout(), "target had no weights")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "removed target weights")
		return nil
	},
}

// parseTargetPath reads "variable=instance,variable=instance".
func parseTargetPath(raw string) ([]types.TargetInstance, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []types.TargetInstance
	for _, step := range strings.Split(raw, ",") {
		name, instance, ok := strings.Cut(strings.TrimSpace(step), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid path step %q: want variable=instance", step)
		}
		id, err := strconv.Atoi(strings.TrimSpace(instance))
		if err != nil {
			return nil, fmt.Errorf("invalid instance in path step %q", step)
		}
		out = append(out, types.TargetInstance{FilterVariableName: name, FilterInstanceID: id})
	}
	return out, nil
}
