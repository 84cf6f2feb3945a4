package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vlan-traffic-simulator/internal/model"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Maintain the ACL held in the database",
	}
	cmd.AddCommand(newRulesListCmd(), newRulesAddCmd(), newRulesDeleteCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rules, err := st.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tID\tSOURCE\tDESTINATION\tPROTOCOL\tACTION\tDESCRIPTION")
			for _, r := range rules {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n", r.Priority, r.ID, r.SourceSegment, r.DestSegment, r.Protocol, r.Action, r.Description)
			}
			return w.Flush()
		},
	}
}

func newRulesAddCmd() *cobra.Command {
	var rule model.Rule
	var protocol, action string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a rule; priority defaults to the end of the list",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rule.Protocol = model.Protocol(protocol)
			rule.Action = model.Action(action)
			created, err := st.CreateRule(cmd.Context(), rule)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created rule %s with priority %d\n", created.ID, created.Priority)
			return nil
		},
	}
	cmd.Flags().StringVar(&rule.ID, "id", "", "Rule id (generated when empty)")
	cmd.Flags().IntVar(&rule.SourceSegment, "src", 0, "Source VLAN (required)")
	cmd.Flags().IntVar(&rule.DestSegment, "dst", 0, "Destination VLAN (required)")
	cmd.Flags().StringVar(&protocol, "protocol", "ANY", "Protocol: TCP, UDP, ICMP or ANY")
	cmd.Flags().StringVar(&action, "action", "", "Action: PERMIT or DENY (required)")
	cmd.Flags().IntVar(&rule.Priority, "priority", 0, "Priority, lower first (0 appends)")
	cmd.Flags().StringVar(&rule.Description, "description", "", "Free-text description")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst")
	cmd.MarkFlagRequired("action")
	return cmd
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted rule %s\n", args[0])
			return nil
		},
	}
}
