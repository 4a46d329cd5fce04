package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/geneflow-org/geneflow/internal/config"
	"github.com/geneflow-org/geneflow/internal/gflog"
	"github.com/geneflow-org/geneflow/internal/gfyaml"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/notify"
	"github.com/geneflow-org/geneflow/internal/runtime"
	"github.com/geneflow-org/geneflow/internal/store"
)

func createRunCommand() *cobra.Command {
	var (
		jobFile       string
		name          string
		output        string
		inFlags       []string
		paramFlags    []string
		workFlags     []string
		ecFlags       []string
		emFlags       []string
		epFlags       []string
		clean         bool
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow definition as a single job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := gfyaml.LoadWorkflow(args[0])
			if err != nil {
				return err
			}

			job := model.Job{}
			if jobFile != "" {
				loaded, err := gfyaml.LoadJob(jobFile)
				if err != nil {
					return err
				}
				job = *loaded
			}

			if job.JobID == "" {
				job.JobID = uuid.NewString()
			}
			if name != "" {
				job.Name = name
			}
			if job.Name == "" {
				job.Name = wf.Name
			}
			if output != "" {
				job.OutputURI = output
			}
			job.WorkflowID = wf.Name

			in, err := splitKV(inFlags)
			if err != nil {
				return fmt.Errorf("--in: %w", err)
			}
			if job.Inputs == nil {
				job.Inputs = map[string]any{}
			}
			for k, v := range in {
				job.Inputs[k] = v
			}

			params, err := splitKV(paramFlags)
			if err != nil {
				return fmt.Errorf("--param: %w", err)
			}
			if job.Parameters == nil {
				job.Parameters = map[string]any{}
			}
			for k, v := range params {
				job.Parameters[k] = v
			}

			work, err := splitKV(workFlags)
			if err != nil {
				return fmt.Errorf("--work: %w", err)
			}
			if job.WorkURI == nil {
				job.WorkURI = map[string]string{}
			}
			for k, v := range work {
				job.WorkURI[k] = v
			}

			ec, err := splitKV(ecFlags)
			if err != nil {
				return fmt.Errorf("--ec: %w", err)
			}
			if job.Execution.Context == nil {
				job.Execution.Context = map[string]string{}
			}
			for k, v := range ec {
				job.Execution.Context[k] = v
			}

			em, err := splitKV(emFlags)
			if err != nil {
				return fmt.Errorf("--em: %w", err)
			}
			if job.Execution.Method == nil {
				job.Execution.Method = map[string]string{}
			}
			for k, v := range em {
				job.Execution.Method[k] = v
			}

			ep, err := splitStepParam(epFlags)
			if err != nil {
				return fmt.Errorf("--ep: %w", err)
			}
			if job.Execution.Parameters == nil {
				job.Execution.Parameters = map[string]map[string]string{}
			}
			for step, kv := range ep {
				if job.Execution.Parameters[step] == nil {
					job.Execution.Parameters[step] = map[string]string{}
				}
				for k, v := range kv {
					job.Execution.Parameters[step][k] = v
				}
			}

			if clean {
				job.Clean = true
			}

			if job.OutputURI == "" {
				return fmt.Errorf("-o/--output is required")
			}

			// AppRef.Git names the app's local directory directly: with
			// install-workflow unimplemented, `run` expects apps to
			// already be checked out locally rather than resolving a
			// remote ref.
			apps := map[string]model.App{}
			for appName, ref := range wf.Apps {
				app, err := gfyaml.LoadApp(filepath.Join(ref.Git, "app.yaml"))
				if err != nil {
					return fmt.Errorf("load app %s: %w", appName, err)
				}
				apps[appName] = *app
			}

			mem := store.NewMemory()
			mem.PutWorkflow(job.WorkflowID, *wf)
			mem.PutApps(job.WorkflowID, apps)
			mem.PutJob(job)

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
			}
			logOpts := []gflog.Option{gflog.WithFormat(cfg.LogFormat)}
			if cfg.Debug {
				logOpts = append(logOpts, gflog.WithDebug())
			}
			log := gflog.New(logOpts...)

			registry, dataMgr, importers := defaultBackends()
			notifier := notify.New(log)

			rt := runtime.New(mem, dataMgr, registry, notifier, log, cfg, importers)

			ctx := cmd.Context()
			if err := registry.InitializeAll(ctx); err != nil {
				return fmt.Errorf("initialize backends: %w", err)
			}
			defer registry.TeardownAll(ctx)

			if err := rt.RunJob(ctx, job.JobID); err != nil {
				return err
			}

			status := mem.Status(job.JobID)
			log.Info("job finished", "job", job.JobID, "status", status)
			if status != model.StatusFinished {
				return fmt.Errorf("job %s did not finish: status %s", job.JobID, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&jobFile, "job", "j", "", "job definition YAML overriding the workflow's defaults")
	cmd.Flags().StringVarP(&name, "name", "n", "", "job name (default: workflow name)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "job output URI (required)")
	cmd.Flags().StringArrayVar(&inFlags, "in", nil, "workflow input override key=value, repeatable")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "workflow parameter override key=value, repeatable")
	cmd.Flags().StringArrayVarP(&workFlags, "work", "w", nil, "execution-context work URI override ctx=uri, repeatable")
	cmd.Flags().StringArrayVar(&ecFlags, "ec", nil, "per-step execution context override step=ctx, repeatable")
	cmd.Flags().StringArrayVar(&emFlags, "em", nil, "per-step execution method override step=method, repeatable")
	cmd.Flags().StringArrayVar(&epFlags, "ep", nil, "per-step execution parameter override step.param=value, repeatable")
	cmd.Flags().BoolVar(&clean, "clean", false, "delete and recreate each step's output folder before it runs")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}
