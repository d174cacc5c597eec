package database

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupLayout = "20060102_150405"

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup writes a compacted copy of the database into a zip archive next to it
// and returns the archive path.
func (d *Database) Backup(ctx context.Context) (string, error) {
	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	snapshot := filepath.Join(dir, fmt.Sprintf("%s_spotprice.db", time.Now().Format(backupLayout)))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return "", fmt.Errorf("vacuuming database into '%s': %w", snapshot, err)
	}
	defer func() {
		if err := os.Remove(snapshot); err != nil {
			d.logger.Warn("could not remove uncompressed backup", slog.String("path", snapshot), slog.Any("error", err))
		}
	}()

	zipPath := snapshot + ".zip"
	if err := zipFile(snapshot, zipPath, filepath.Base(d.path)); err != nil {
		return "", err
	}

	d.logger.Info("database backup complete", slog.String("filename", zipPath))
	return zipPath, nil
}

func zipFile(src, dest, entryName string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open backup for compression: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create zip file entry: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write database to zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip file: %w", err)
	}
	return out.Close()
}

// PurgeBackups removes backup archives older than retentionDays, zero keeps everything.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	files, err := filepath.Glob(filepath.Join(d.backupDir(), "*_spotprice.db.zip"))
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		stamp, _, _ := strings.Cut(filepath.Base(file), "_spotprice")
		t, err := time.ParseInLocation(backupLayout, stamp, time.Local)
		if err != nil {
			d.logger.Debug("skipping file without backup timestamp", slog.String("filename", file))
			continue
		}
		if t.Before(cutoff) {
			d.logger.Debug("deleting old backup", slog.String("path", file))
			if err := os.Remove(file); err != nil {
				return fmt.Errorf("remove old backup '%s': %w", file, err)
			}
		}
	}

	d.logger.Info("backup purge complete")
	return nil
}
