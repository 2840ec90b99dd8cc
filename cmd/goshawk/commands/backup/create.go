package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	backuppkg "github.com/goshawk-nvr/goshawk/pkg/backup"
)

var (
	createOutput string
	createUpload bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a registry backup",
	Long: `Create a backup archive of the registry database.

The snapshot is taken online; the server can keep running. Without
--output, the archive lands in the configured backup directory with a
timestamped name. PostgreSQL registries are backed up with pg_dump
instead and are refused here.

Examples:
  # Back up into the configured backup directory
  goshawk backup create

  # Back up to an explicit path
  goshawk backup create --output /mnt/backups/goshawk.tar.gz

  # Back up and upload to the configured S3 bucket
  goshawk backup create --upload`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createOutput, "output", "O", "", "Output path for the archive (default: timestamped file in backup.dir)")
	createCmd.Flags().BoolVar(&createUpload, "upload", false, "Upload the archive to the configured S3 bucket")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	outputPath := createOutput
	if outputPath == "" {
		name := fmt.Sprintf("goshawk-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
		outputPath = filepath.Join(cfg.Backup.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	store, err := cfg.Registry.NewStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	startTime := time.Now()

	manifest, err := backuppkg.Create(ctx, store, outputPath)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Println("Backup complete")
	fmt.Printf("  File:        %s\n", outputPath)
	printManifest(manifest)
	fmt.Printf("  Duration:    %s\n", time.Since(startTime).Round(time.Millisecond))

	if !createUpload {
		return nil
	}

	s3cfg := cfg.Backup.S3
	if s3cfg.Bucket == "" {
		return fmt.Errorf("S3 upload not configured: set backup.s3.bucket in the config")
	}
	client, err := backuppkg.NewS3Client(ctx, s3cfg)
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	uploader, err := backuppkg.NewUploader(client, s3cfg, nil)
	if err != nil {
		return err
	}
	key, err := uploader.Upload(ctx, outputPath)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Printf("  Uploaded:    s3://%s/%s\n", s3cfg.Bucket, key)

	return nil
}
