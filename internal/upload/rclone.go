package upload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Rclone transfers the report with `rclone copyto` through a
// pre-authorized remote, so no OAuth flow runs at upload time.
type Rclone struct {
	remote     string // remote name from the rclone config, e.g. manus_google_drive
	remotePath string // path inside the remote, e.g. ai4p_dashboard/index.html
	configFile string // rclone config holding the drive token
}

func NewRclone(remote, remotePath, configFile string) *Rclone {
	return &Rclone{remote: remote, remotePath: remotePath, configFile: configFile}
}

func (r *Rclone) Name() string { return "rclone" }

func (r *Rclone) args(localPath string) []string {
	args := []string{"copyto", localPath, r.remote + ":" + r.remotePath}
	if r.configFile != "" {
		args = append(args, "--config", r.configFile)
	}
	return args
}

// Upload shells out to rclone. The error carries rclone's stderr, which
// is where it explains quota and token problems.
func (r *Rclone) Upload(ctx context.Context, localPath string) error {
	cmd := exec.CommandContext(ctx, "rclone", r.args(localPath)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("rclone copyto: %s", msg)
	}
	return nil
}
