package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relicworks/relic/pkg/memory"
	"github.com/relicworks/relic/pkg/service"
	"github.com/relicworks/relic/pkg/workflow"
)

var (
	addrFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the modernization HTTP service",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			prvdr, err := newProvider()
			if err != nil {
				return err
			}

			dimension := viper.GetInt("memory.dimension")
			embedder, err := newEmbedder(dimension)
			if err != nil {
				return err
			}

			store := memory.NewStore(memory.WithDimension(dimension))
			orchestrator := workflow.New(
				workflow.WithProvider(prvdr),
				workflow.WithMemory(store),
				workflow.WithEmbedder(embedder),
				workflow.WithConfig(workflowConfig()),
			)
			defer orchestrator.Close()

			addr := addrFlag
			if addr == "" {
				addr = viper.GetString("server.addr")
			}
			return service.NewServer(orchestrator, store).Start(addr)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&addrFlag, "addr", "a", "", "address to listen on (overrides config)")
}

// workflowConfig layers the config file over the defaults.
func workflowConfig() workflow.Config {
	cfg := workflow.DefaultConfig()

	if viper.IsSet("workflow.enable_parallel_processing") {
		cfg.EnableParallelProcessing = viper.GetBool("workflow.enable_parallel_processing")
	}
	if viper.IsSet("workflow.enable_self_healing") {
		cfg.EnableSelfHealing = viper.GetBool("workflow.enable_self_healing")
	}
	if viper.IsSet("workflow.confidence_threshold") {
		cfg.ConfidenceThreshold = viper.GetFloat64("workflow.confidence_threshold")
	}
	if viper.IsSet("workflow.max_retries") {
		cfg.MaxRetries = viper.GetInt("workflow.max_retries")
	}
	if viper.IsSet("workflow.enable_validation") {
		cfg.EnableValidation = viper.GetBool("workflow.enable_validation")
	}
	if viper.IsSet("workflow.enable_explanation") {
		cfg.EnableExplanation = viper.GetBool("workflow.enable_explanation")
	}
	return cfg
}

var longServe = `
Start the HTTP front door: workflow submission and polling, batch runs,
orchestrator configuration, and the memory architecture report.
`
