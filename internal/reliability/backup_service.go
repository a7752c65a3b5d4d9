package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	archivePrefix = "medkiosk-backup-"
	archiveSuffix = ".tar.gz"
	// Backups newer than this always survive rotation.
	minBackupsToKeep = 3
)

// BackupService archives the kiosk's data files and uploads the archive
// to an object store. The archive carries a metadata file with SHA256
// checksums so a restore can verify what it pulled down.
type BackupService struct {
	store   ObjectStore
	dataDir string
	files   []string // absolute paths of files to include
	log     zerolog.Logger
}

// BackupMetadata describes the contents of a backup archive.
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata describes a single file inside a backup.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes a backup stored remotely.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewBackupService creates a backup service covering the given files.
func NewBackupService(store ObjectStore, dataDir string, files []string, log zerolog.Logger) *BackupService {
	return &BackupService{
		store:   store,
		dataDir: dataDir,
		files:   files,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload builds a backup archive in a staging directory and
// uploads it. Files that do not exist yet are skipped; an archive with
// zero files is an error.
func (s *BackupService) CreateAndUpload(ctx context.Context) (BackupInfo, error) {
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: startTime.UTC(),
		Version:   "1.0.0",
		Files:     make([]FileMetadata, 0, len(s.files)),
	}

	var included []string
	for _, path := range s.files {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			s.log.Debug().Str("file", path).Msg("Skipping missing file")
			continue
		}
		if err != nil {
			return BackupInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return BackupInfo{}, fmt.Errorf("failed to checksum %s: %w", path, err)
		}

		metadata.Files = append(metadata.Files, FileMetadata{
			Name:      filepath.Base(path),
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		included = append(included, path)
	}

	if len(included) == 0 {
		return BackupInfo{}, fmt.Errorf("no data files exist yet, nothing to back up")
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := archivePrefix + startTime.Format("2006-01-02-150405") + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, append(included, metadataPath)); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Int("files", len(included)).
		Msg("Backup completed")

	return BackupInfo{
		Filename:  archiveName,
		Timestamp: startTime.UTC(),
		SizeBytes: archiveInfo.Size(),
	}, nil
}

// ListBackups lists stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := time.Now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, archivePrefix) || !strings.HasSuffix(obj.Key, archiveSuffix) {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(obj.Key, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse("2006-01-02-150405", timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", obj.Key).Msg("Failed to parse timestamp from filename")
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period.
// The newest three are kept regardless of age; retentionDays of zero
// keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	if len(backups) <= minBackupsToKeep || retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, backup := range backups {
		if i < minBackupsToKeep || !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return nil
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath string, files []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, path := range files {
		if err := addFileToArchive(tarWriter, path, filepath.Base(path)); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filepath.Base(path), err)
		}
	}

	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
