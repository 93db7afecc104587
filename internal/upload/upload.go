// Package upload pushes the published dashboard to its remote home.
package upload

import (
	"context"
	"fmt"
	"path"

	"github.com/ai4p/usagedash/internal/config"
)

// Uploader sends the rendered report to a remote destination.
type Uploader interface {
	// Upload transfers the file at localPath. The remote location is
	// fixed at construction time.
	Upload(ctx context.Context, localPath string) error
	Name() string
}

// New returns the uploader selected by upload.backend.
func New(cfg *config.Config) (Uploader, error) {
	switch cfg.Upload.Backend {
	case "", "rclone":
		return NewRclone(cfg.Upload.Remote, cfg.Upload.RemotePath, cfg.Upload.RcloneConfig), nil
	case "drive":
		return NewDrive(cfg.Upload.CredentialsFile, cfg.Upload.FolderID, path.Base(cfg.Upload.RemotePath)), nil
	case "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q (valid: rclone, drive, none)", cfg.Upload.Backend)
	}
}

// Disabled is the no-op uploader for local-only installs.
type Disabled struct{}

func (Disabled) Upload(context.Context, string) error { return nil }
func (Disabled) Name() string                         { return "none" }
