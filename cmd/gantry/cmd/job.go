package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gantryhq/gantry/internal/constants"
	"github.com/gantryhq/gantry/internal/manifest"
	"github.com/gantryhq/gantry/internal/output"
	"github.com/gantryhq/gantry/internal/resource"
	"github.com/gantryhq/gantry/internal/runner"

	"github.com/spf13/cobra"
)

var jobRemote bool

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Work with the application's container jobs",
}

var jobRunCmd = &cobra.Command{
	Use:   "run <name> [<task_id>]",
	Short: "Run a declared job",
	Long: `Run a declared job's command locally with the task index environment
Cloud Run would inject. With --remote, start an execution of the deployed
Cloud Run job for the active stage instead.`,
	RunE: runJobRun,
	Args: cobra.RangeArgs(1, 2),
}

func init() {
	addConfigFlags(jobRunCmd)
	jobRunCmd.Flags().BoolVar(&jobRemote, "remote", false, "Execute the deployed Cloud Run job instead of running locally")
	jobCmd.AddCommand(jobRunCmd)
	rootCmd.AddCommand(jobCmd)
}

// jobExecutor starts a remote execution of a deployed job by base name.
type jobExecutor interface {
	Execute(ctx context.Context, base string) error
}

func runJobRun(cmd *cobra.Command, args []string) error {
	name := args[0]

	if jobRemote {
		env, err := resolveEnvironment(cmd.Context(), "", "")
		if err != nil {
			return err
		}
		if _, ok := env.man.JobByName(name); !ok {
			return fmt.Errorf("job %q is not declared in %s", name, constants.ManifestFileName)
		}
		h, _ := env.registry.Handler(resource.KindJob)
		executor, ok := h.(jobExecutor)
		if !ok {
			return fmt.Errorf("job execution is not supported by this provider")
		}
		if err := executor.Execute(cmd.Context(), name); err != nil {
			return err
		}
		output.Success("Started execution of job %s", output.Bold(env.conv.RemoteName(name)))
		return nil
	}

	man, err := manifest.Load(constants.ManifestFileName)
	if err != nil {
		return err
	}
	job, ok := man.JobByName(name)
	if !ok {
		return fmt.Errorf("job %q is not declared in %s", name, constants.ManifestFileName)
	}

	taskID := os.Getenv(constants.EnvTaskIndex)
	if len(args) == 2 {
		taskID = args[1]
	}
	if taskID == "" {
		taskID = "0"
	}

	return jobRunLocal(cmd.Context(), &runner.ExecLauncher{}, job, taskID)
}

// jobRunLocal executes the job's command on this machine with the same task
// index variable Cloud Run injects, so job code cannot tell the difference.
func jobRunLocal(ctx context.Context, launcher runner.Launcher, job manifest.Job, taskID string) error {
	if len(job.Command) == 0 {
		return fmt.Errorf("job %q declares no command to run locally", job.Name)
	}

	output.Info("Running job %s (task %s)", output.Bold(job.Name), taskID)
	env := []string{constants.EnvTaskIndex + "=" + taskID}
	out, err := launcher.Run(ctx, job.Command[0], append(job.Command[1:], job.Args...), env)
	if len(out) > 0 {
		output.Println(string(out))
	}
	if err != nil {
		return fmt.Errorf("job %q failed: %w", job.Name, err)
	}
	output.Success("Job %s completed", output.Bold(job.Name))
	return nil
}
