package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/services"
)

var (
	plansSubset     string
	plansOutput     string
	plansReplaceYes bool
)

func init() {
	rootCmd.AddCommand(plansCmd)
	plansCmd.PersistentFlags().StringVar(&plansSubset, "subset", "", "subset id")

	plansExportCmd.Flags().StringVarP(&plansOutput, "output", "o", "", "write the document to a file instead of stdout")
	plansReplaceAllCmd.Flags().BoolVar(&plansReplaceYes, "yes", false, "confirm removal of subsets missing from the documents")

	plansCmd.AddCommand(
		plansListCmd,
		plansApplyCmd,
		plansReplaceAllCmd,
		plansExportCmd,
		plansDeleteCmd,
		plansDeleteTargetCmd,
		plansClearChildrenCmd,
		plansClearSubsetCmd,
	)
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect and change weighting plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List weighting plans, optionally for one subset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		agg := application.Aggregates.WeightingPlan
		var plans []*types.WeightingPlan
		if plansSubset != "" {
			plans, err = agg.GetWeightingPlansForSubset(cmd.Context(), scope, plansSubset)
		} else {
			plans, err = agg.GetWeightingPlans(cmd.Context(), scope)
		}
		if err != nil {
			return err
		}
		return writePlanTable(cmd.OutOrStdout(), plans)
	},
}

func writePlanTable(w io.Writer, plans []*types.WeightingPlan) error {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].SubsetID != plans[j].SubsetID {
			return plans[i].SubsetID < plans[j].SubsetID
		}
		return plans[i].IsRoot() && !plans[j].IsRoot()
	})
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBSET\tPLAN\tVARIABLE\tPARENT TARGET\tTARGETS")
	for _, p := range plans {
		parent := "-"
		if !p.IsRoot() {
			parent = p.ParentWeightingTargetID.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.SubsetID, p.ID, p.VariableIdentifier, parent, len(p.ChildTargets))
	}
	return tw.Flush()
}

var plansApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Apply a YAML plan document to its subset",
	Long:  "Upserts the document's plans into its subset and removes the subset's plans the document no longer references.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		doc, err := readPlanDocument(args[0])
		if err != nil {
			return err
		}
		res, err := application.Services.PlanDocument.Apply(cmd.Context(), scope, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "subset %s: %d plans and %d targets written, %d plans and %d targets removed\n",
			doc.Subset, res.PlansWritten, res.TargetsWritten, res.PlansDeleted, res.TargetsDeleted)
		return nil
	},
}

var plansReplaceAllCmd = &cobra.Command{
	Use:   "replace-all FILE...",
	Short: "Replace every plan in scope with the given documents",
	Long:  "Deletes every plan and target of every subset in scope, then inserts the documents' plans. Subsets without a document lose their plans.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !plansReplaceYes {
			return fmt.Errorf("replace-all removes every plan in scope; pass --yes to continue")
		}
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		var roots []*types.WeightingPlan
		for _, path := range args {
			doc, err := readPlanDocument(path)
			if err != nil {
				return err
			}
			plans, err := doc.WeightingPlans()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			roots = append(roots, plans...)
		}
		res, err := application.Aggregates.WeightingPlan.UpdateAllWeightingPlans(cmd.Context(), scope, roots)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d plans and %d targets removed, %d plans and %d targets written\n",
			res.PlansDeleted, res.TargetsDeleted, res.PlansWritten, res.TargetsWritten)
		for _, s := range res.DestroyedSubsets {
			fmt.Fprintf(cmd.OutOrStdout(), "subset %s no longer has plans\n", s)
		}
		return nil
	},
}

var plansExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a subset's plans as a YAML plan document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(plansSubset)
		if err != nil {
			return err
		}
		doc, err := application.Services.PlanDocument.Export(cmd.Context(), scope, subset)
		if err != nil {
			return err
		}
		if plansOutput == "" {
			return doc.Encode(cmd.OutOrStdout())
		}
		f, err := os.Create(plansOutput)
		if err != nil {
			return err
		}
		if err := doc.Encode(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var plansDeleteCmd = &cobra.Command{
	Use:   "delete PLAN_ID",
	Short: "Delete a plan and everything below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid plan id: %w", err)
		}
		res, err := application.Aggregates.WeightingPlan.DeleteWeightingPlan(cmd.Context(), scope, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d plans, %d targets, %d contexts\n", res.PlansDeleted, res.TargetsDeleted, res.ContextsDeleted)
		return nil
	},
}

var plansDeleteTargetCmd = &cobra.Command{
	Use:   "delete-target TARGET_ID",
	Short: "Delete a target and every plan below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargetDelete(cmd, args[0], true)
	},
}

var plansClearChildrenCmd = &cobra.Command{
	Use:   "clear-children TARGET_ID",
	Short: "Delete the plans below a target and keep the target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargetDelete(cmd, args[0], false)
	},
}

func runTargetDelete(cmd *cobra.Command, rawID string, includeTarget bool) error {
	scope, err := commandScope(cmd)
	if err != nil {
		return err
	}
	subset, err := requireSubset(plansSubset)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid target id: %w", err)
	}
	agg := application.Aggregates.WeightingPlan
	remove := agg.DeleteWeightingChildPlansForTarget
	if includeTarget {
		remove = agg.DeleteWeightingTarget
	}
	res, err := remove(cmd.Context(), scope, subset, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d plans, %d targets, %d contexts\n", res.PlansDeleted, res.TargetsDeleted, res.ContextsDeleted)
	return nil
}

var plansClearSubsetCmd = &cobra.Command{
	Use:   "clear-subset",
	Short: "Delete every plan of a subset and mark saved reports unweighted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := commandScope(cmd)
		if err != nil {
			return err
		}
		subset, err := requireSubset(plansSubset)
		if err != nil {
			return err
		}
		res, err := application.Aggregates.WeightingPlan.DeleteWeightingPlanForSubset(cmd.Context(), scope, subset)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d plans, %d targets, %d contexts; %d saved reports now unweighted\n",
			res.PlansDeleted, res.TargetsDeleted, res.ContextsDeleted, res.ReportsUnweighted)
		for _, name := range res.UnweightedReports {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
		return nil
	},
}

func readPlanDocument(path string) (*services.PlanDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := services.DecodePlanDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
