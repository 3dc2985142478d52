package main

import (
	"context"

	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/urfave/cli/v3"
)

type trialStatus struct {
	Authenticated bool `json:"authenticated"`
	Used          int  `json:"used"`
	Remaining     int  `json:"remaining"`
	Limit         int  `json:"limit"`
	CanUpload     bool `json:"can_upload"`
}

// TrialStatus prints the local trial allowance.
func (r *Runner) TrialStatus(ctx context.Context, cmd *cli.Command) error {
	gate, _, err := r.gate(ctx)
	if err != nil {
		return err
	}

	status := trialStatus{
		Authenticated: gate.Authenticated(),
		Used:          gate.Used(),
		Remaining:     gate.RemainingTrials(),
		Limit:         trial.MaxTrialUploads,
		CanUpload:     gate.CanUpload(),
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if status.Authenticated {
		return r.writePlain("Signed in: uploads are not limited\n")
	}

	r.writePlain("Trial uploads used:      %d/%d\n", status.Used, status.Limit)
	r.writePlain("Trial uploads remaining: %d\n", status.Remaining)
	if !status.CanUpload {
		r.writePlain("Run 'tflow auth login' to keep uploading.\n")
	}
	return nil
}
