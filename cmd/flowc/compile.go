package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/flowc/format/n8n"
	"github.com/Tsinling0525/flowc/logger"
	"github.com/Tsinling0525/flowc/model"
)

func newCompileCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		submit bool
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a workflow JSON file and print the n8n document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			wf, err := decodeWorkflow(data)
			if err != nil {
				return err
			}

			res := n8n.Compile(wf)
			for _, u := range res.Unresolved {
				opts.log.Warn("dropped edge with unknown endpoint", "edge", u.Index, "source", u.Source.String(), "target", u.Target.String())
			}

			if !submit {
				return writeJSON(cmd.OutOrStdout(), res.Workflow)
			}

			ctx := logger.ContextWithLogger(cmd.Context(), opts.log)
			created, err := opts.n8nClient().CreateWorkflow(ctx, res.Workflow)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"status":       "success",
				"workflowId":   created.ID,
				"workflowName": created.Name,
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to workflow JSON")
	cmd.Flags().BoolVar(&submit, "submit", false, "create the compiled workflow in n8n")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// decodeWorkflow accepts either a compile request body or a bare workflow document.
func decodeWorkflow(data []byte) (model.Workflow, error) {
	var req model.CompileRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return model.Workflow{}, fmt.Errorf("decode workflow: %w", err)
	}
	if req.Workflow == nil {
		var wf model.Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			return model.Workflow{}, fmt.Errorf("decode workflow: %w", err)
		}
		req.Workflow = &wf
	}
	if err := req.Workflow.Validate(); err != nil {
		return model.Workflow{}, err
	}
	return *req.Workflow, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
