package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/expert-panel/backend/internal/analysis/expertise"
	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

func newClassifyCmd() *cobra.Command {
	var personasFile string

	cmd := &cobra.Command{
		Use:   "classify [MESSAGE...]",
		Short: "Show which experts would answer a message",
		Long: `Run the expertise classifier offline and print the selected experts in
invocation order, together with the rule that decided.
Example: expert-panel classify "how do I deploy with Docker?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := persona.LoadFile(personasFile)
			if err != nil {
				return err
			}
			store := persona.NewMemoryStore(items)

			experts, rule := expertise.New(items).Explain(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule: %s\n", rule)
			for i, tag := range experts {
				name := "(no persona)"
				if p, ok := store.FindByExpertise(tag); ok {
					name = p.Name
				}
				fmt.Fprintf(out, "%d. %-16s %s\n", i+1, tag, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&personasFile, "personas", "", "YAML persona registry (built-in panel when empty)")

	return cmd
}
