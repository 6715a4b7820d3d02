package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cloudfit/pkg/api"
	"cloudfit/pkg/train"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	defOffset = 0
	defLimit  = 10

	jobStatus    string
	requestFile  string
	pollInterval time.Duration
)

// jobFile is the on disk layout of a job submission. The API types use Go
// field names on the wire, so the YAML mapping lives here.
type jobFile struct {
	DisplayName        string   `yaml:"display_name"`
	ModelType          string   `yaml:"model_type"`
	EntrypointLocation string   `yaml:"entrypoint_location"`
	OutputLocation     string   `yaml:"output_location"`
	ContainerImage     string   `yaml:"container_image"`
	Requirements       []string `yaml:"requirements"`
	ReplicaCount       int      `yaml:"replica_count"`
}

const jobTemplate = `# cloudfit training job submission
display_name: linear-regression-training-job
model_type: linear_regression
entrypoint_location: s3://my-bucket/runs/fit_run_20240101_000000/training_entrypoint.json
output_location: s3://my-bucket/runs/fit_run_20240101_000000/model
container_image: us-docker.pkg.dev/cloudfit/training/runtime:latest
requirements:
  - golearn>=0.1
replica_count: 1
`

func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs [submit|get|list|await|template]",
		Short: "Training jobs manager",
		Long:  `Submit, view, list, and await training jobs.`,
	}

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit job",
		Long: `Submit a training job described by a YAML file.

The file layout matches the output of 'cloudfit jobs template'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(requestFile)
			if err != nil {
				return fmt.Errorf("error reading job file '%s': %w", requestFile, err)
			}

			var file jobFile
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return fmt.Errorf("error parsing job file '%s': %w", requestFile, err)
			}

			job, err := backend.SubmitTrainingJob(cmd.Context(), api.SubmitTrainingJobRequest{
				DisplayName:        file.DisplayName,
				ModelType:          file.ModelType,
				EntrypointLocation: file.EntrypointLocation,
				OutputLocation:     file.OutputLocation,
				ContainerImage:     file.ContainerImage,
				Requirements:       file.Requirements,
				ReplicaCount:       file.ReplicaCount,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}

	submitCmd.Flags().StringVarP(&requestFile, "file", "f", "", "path to the YAML job file")
	_ = submitCmd.MarkFlagRequired("file")

	getCmd := &cobra.Command{
		Use:   "get <job_id>",
		Short: "Get job",
		Long:  `Get a training job by id.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id '%s': %w", args[0], err)
			}

			job, err := backend.GetTrainingJob(cmd.Context(), jobId)
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Long:  `List training jobs, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := backend.ListTrainingJobs(cmd.Context(), api.ListTrainingJobsQuery{
				Status: jobStatus,
				Limit:  defLimit,
				Offset: defOffset,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, jobs)
		},
	}

	listCmd.Flags().StringVarP(&jobStatus, "status", "s", "", "only list jobs with this status")
	listCmd.Flags().IntVarP(&defLimit, "limit", "l", defLimit, "Limit")
	listCmd.Flags().IntVarP(&defOffset, "offset", "o", defOffset, "Offset")

	awaitCmd := &cobra.Command{
		Use:   "await <job_id>",
		Short: "Await job",
		Long:  `Poll a training job until it reaches a terminal status.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id '%s': %w", args[0], err)
			}

			type result struct {
				job *api.TrainingJob
				err error
			}

			done := make(chan result, 1)
			go func() {
				job, err := backend.AwaitTrainingJob(cmd.Context(), jobId, pollInterval)
				done <- result{job, err}
			}()

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("⏳ waiting for job "+jobId.String()),
				progressbar.OptionClearOnFinish(),
			)
			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case res := <-done:
					_ = bar.Finish()
					if res.err != nil {
						return res.err
					}
					if err := printJSON(cmd, res.job); err != nil {
						return err
					}
					if res.job.Status == api.JobFailed {
						return fmt.Errorf("training job %s failed: %s", res.job.Id, res.job.Message)
					}
					return nil
				case <-ticker.C:
					_ = bar.Add(1)
				}
			}
		},
	}

	awaitCmd.Flags().DurationVar(&pollInterval, "poll-interval", train.DefaultPollInterval, "how often to poll the backend")

	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Print job template",
		Long:  `Print a sample YAML job file for 'cloudfit jobs submit'.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(jobTemplate)
		},
	}

	cmd.AddCommand(submitCmd)
	cmd.AddCommand(getCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(awaitCmd)
	cmd.AddCommand(templateCmd)

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
