package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"subsample.dev/pkg/subsample/internal/adapter"
	"subsample.dev/pkg/subsample/internal/controller"
	"subsample.dev/pkg/subsample/internal/domain"
	m "subsample.dev/pkg/subsample/internal/model"
)

var (
	fetchCountFlag    int
	fetchTaskFlag     string
	fetchOutputFlag   string
	fetchParallelFlag int
	fetchSeedFlag     uint64
	fetchSkipDepsFlag bool
)

const fetchLongDescription = `Fetch a random sample of subjects from a versioned dataset.

Only the selected recordings are resolved to real content; everything else
stays a metadata placeholder. A run report is written next to the downloaded
files. The command exits non-zero unless at least one file was downloaded.`

// fetchCmd represents the fetch command.
var fetchCmd = newFetchCmd()

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <dataset-id>",
		Short: "Fetch a random sample of subject recordings",
		Long:  fetchLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0])
		},
	}

	configureFetchFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func configureFetchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&fetchCountFlag, countFlagName, "n", viper.GetInt(countConfigKey), "number of subjects to sample")
	bindFlagToConfig(cmd.Flags().Lookup(countFlagName), countConfigKey)

	cmd.Flags().StringVarP(&fetchTaskFlag, taskFlagName, "t", "", "restrict subjects to recordings of this experimental condition")
	cmd.Flags().StringVarP(&fetchOutputFlag, outputFlagName, "o", "", "output folder (default <dataset-id>-sample)")

	cmd.Flags().IntVarP(&fetchParallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel content resolutions")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().Uint64Var(&fetchSeedFlag, seedFlagName, 0, "random seed for reproducible sampling")
	cmd.Flags().BoolVar(&fetchSkipDepsFlag, skipDepsFlagName, false, "skip checking for git and git-annex")
}

func runFetch(cmd *cobra.Command, datasetID string) error {
	runLog := m.NewRunLog()
	configureLogger(verboseFlag, runLog)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ui := controller.NewUI(cmd, controller.IsTTY(os.Stdout), verboseFlag, cancel)
	if err := ui.Start(); err != nil {
		return err
	}

	defer ui.Close()

	outputFolder := fetchOutputFlag
	if outputFolder == "" {
		outputFolder = datasetID + "-sample"
	}

	workingCopy := filepath.Join(viper.GetString(workdirKey), datasetID)

	logger := globalLogger
	git := adapter.NewLocalGitAdapter()
	fs := adapter.NewLocalDatasetFSAdapter()

	var sampler domain.Sampler
	if cmd.Flags().Changed(seedFlagName) {
		sampler = domain.NewSeededSampler(fetchSeedFlag, logger)
	} else {
		sampler = domain.NewSampler(logger)
	}

	workflow := domain.NewWorkflow(domain.WorkflowDeps{
		Toolchain:   adapter.NewLocalToolchainAdapter(),
		Locator:     domain.NewDatasetLocator(git, viper.GetString(remoteBaseKey), logger),
		Binding:     domain.NewRepositoryBinding(git, fs, viper.GetInt64(pointerThresholdKey), logger),
		Index:       domain.NewSubjectIndex(logger),
		Sampler:     sampler,
		FS:          fs,
		ReportStore: adapter.NewFileReportStore(m.Path(outputFolder)),
		UI:          ui,
		RunLog:      runLog,
		Logger:      logger,
		OpenOutput: func(dir string) (adapter.OutputStore, error) {
			return adapter.NewLocalOutputStore(dir)
		},
		SuccessThreshold: viper.GetInt64(successThresholdKey),
		Extensions:       viper.GetStringSlice(extensionsKey),
	})

	report, err := workflow.Fetch(ctx, domain.FetchArgs{
		DatasetID:     datasetID,
		SubjectCount:  viper.GetInt(countConfigKey),
		TaskFilter:    fetchTaskFlag,
		OutputFolder:  outputFolder,
		WorkingCopy:   m.Path(workingCopy),
		Workers:       viper.GetInt(parallelConfigKey),
		SkipToolCheck: fetchSkipDepsFlag,
	})
	if err != nil {
		return err
	}

	if report.TotalFilesDownloaded == 0 {
		return fmt.Errorf("no files were downloaded from %s", datasetID)
	}

	return nil
}
