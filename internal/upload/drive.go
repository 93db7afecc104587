package upload

import (
	"context"
	"fmt"
	"os"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Drive uploads through the Drive API directly, for hosts without an
// rclone install. The credentials need access to the target folder.
type Drive struct {
	credentialsFile string
	folderID        string
	fileName        string
}

func NewDrive(credentialsFile, folderID, fileName string) *Drive {
	if fileName == "" || fileName == "." {
		fileName = "index.html"
	}
	return &Drive{credentialsFile: credentialsFile, folderID: folderID, fileName: fileName}
}

func (d *Drive) Name() string { return "drive" }

// Upload creates the file on the first run and updates it in place
// afterwards, keeping the share link stable.
func (d *Drive) Upload(ctx context.Context, localPath string) error {
	opts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
	if d.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.credentialsFile))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("drive service: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := d.findExisting(svc)
	if err != nil {
		return err
	}
	if existing != "" {
		if _, err := svc.Files.Update(existing, &drive.File{}).Media(f).Context(ctx).Do(); err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	meta := &drive.File{Name: d.fileName, MimeType: "text/html"}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}
	if _, err := svc.Files.Create(meta).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive create: %w", err)
	}
	return nil
}

func (d *Drive) findExisting(svc *drive.Service) (string, error) {
	list, err := svc.Files.List().Q(driveQuery(d.fileName, d.folderID)).
		Fields("files(id)").PageSize(1).Do()
	if err != nil {
		return "", fmt.Errorf("drive list: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func driveQuery(name, folderID string) string {
	q := fmt.Sprintf("name = '%s' and trashed = false", name)
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", folderID)
	}
	return q
}
