package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nexcart/storefront-api/logger"
)

// startDailyBackupAtFixedTime snapshots the uploads directory once a day
// at the given local time and prunes snapshots older than retention.
func startDailyBackupAtFixedTime(srcDir, backupDir string, retention time.Duration, hour, min int) {
	log := logger.L()
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		log.Info("next uploads backup scheduled", zap.Time("at", next))
		time.Sleep(next.Sub(now))

		destDir := filepath.Join(backupDir, time.Now().Format("2006-01-02_15-04-05"))
		if err := copyDir(srcDir, destDir); err != nil {
			log.Error("uploads backup failed", zap.Error(err))
		} else {
			log.Info("uploads backed up", zap.String("dest", destDir))
		}

		cleanupOldBackups(backupDir, retention)
	}
}

// copyDir recursively copies a folder
func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// cleanupOldBackups removes snapshot folders older than retention.
func cleanupOldBackups(backupDir string, retention time.Duration) {
	log := logger.L()

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		log.Warn("failed to read backup directory", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-retention)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folderPath := filepath.Join(backupDir, entry.Name())
		info, err := os.Stat(folderPath)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(folderPath); err != nil {
				log.Warn("failed to remove old backup", zap.String("path", folderPath), zap.Error(err))
			} else {
				log.Info("removed old backup", zap.String("path", folderPath))
			}
		}
	}
}
