package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relicworks/relic/pkg/memory"
	"github.com/relicworks/relic/pkg/stage"
	"github.com/relicworks/relic/pkg/workflow"
)

var (
	languageFlag  string
	targetFlag    string
	frameworkFlag string

	runCmd = &cobra.Command{
		Use:   "run [file]",
		Short: "Run the pipeline once over a source file",
		Long:  longRun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			prvdr, err := newProvider()
			if err != nil {
				return err
			}

			dimension := viper.GetInt("memory.dimension")
			embedder, err := newEmbedder(dimension)
			if err != nil {
				return err
			}

			orchestrator := workflow.New(
				workflow.WithProvider(prvdr),
				workflow.WithMemory(memory.NewStore(memory.WithDimension(dimension))),
				workflow.WithEmbedder(embedder),
				workflow.WithConfig(workflowConfig()),
			)
			defer orchestrator.Close()

			wf := orchestrator.Run(cmd.Context(), workflow.Request{
				Input: stage.Input{
					Source:         string(source),
					Language:       languageFlag,
					TargetLanguage: targetFlag,
					FrameworkHint:  frameworkFlag,
				},
			})

			encoded, err := json.MarshalIndent(wf, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))

			if wf.Status != workflow.StatusCompleted {
				return fmt.Errorf("workflow %s: %s", wf.Status, wf.Error)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&languageFlag, "language", "l", "", "source language of the input file")
	runCmd.Flags().StringVarP(&targetFlag, "target", "t", "go", "target language for the transformation")
	runCmd.Flags().StringVar(&frameworkFlag, "framework", "", "optional framework hint for the target")
}

var longRun = `
Run a single modernization workflow over one source file and print the
terminal workflow record as JSON. Exits non-zero unless the workflow
completes.
`
