package drive

import (
	"context"
	"io"
	"log/slog"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Files is the Accessor for non-folder items plus content uploads.
type Files struct {
	*Accessor[File]
	slots     *UploadSlots
	chunkSize int
}

// NewFiles returns a file accessor bound to s. Uploads run through slots;
// nil slots runs them on the caller's goroutine.
func NewFiles(s *Session, slots *UploadSlots) *Files {
	return &Files{
		Accessor:  NewAccessor(s, FileKind),
		slots:     slots,
		chunkSize: s.chunkSize,
	}
}

// CreateEmpty creates a file with no content.
func (f *Files) CreateEmpty(ctx context.Context, name, mimeType, parentID string) (File, error) {
	return f.Create(ctx, name, parentID, mimeType)
}

// Upload creates a new file with content in one call. Large content goes
// through the client library's resumable protocol. Shared drives are
// always allowed as targets.
func (f *Files) Upload(ctx context.Context, name string, content io.Reader, mimeType, parentID string) (File, error) {
	f.logger.Info("uploading file",
		slog.String("name", name),
		slog.String("parent_id", parentID),
		slog.String("mime_type", mimeType),
	)

	var out File

	err := f.slots.Do(ctx, func(ctx context.Context) error {
		res, err := f.files.Create(f.metadata(name, parentID, mimeType)).
			Media(content, f.mediaOptions(mimeType)...).
			SupportsAllDrives(true).
			Fields(f.kind.Fields).
			Context(ctx).
			Do()
		if err != nil {
			return f.createErr(parentID, err)
		}

		out, err = f.kind.FromDrive(res)

		return err
	})
	if err != nil {
		return File{}, err
	}

	f.logger.Info("upload complete",
		slog.String("item_id", out.ID),
		slog.String("name", out.Name),
	)

	return out, nil
}

// ReplaceContent uploads new content to an existing file, keeping its ID,
// name and parents.
func (f *Files) ReplaceContent(ctx context.Context, id string, content io.Reader, mimeType string) (File, error) {
	f.logger.Info("replacing file content",
		slog.String("item_id", id),
		slog.String("mime_type", mimeType),
	)

	var out File

	err := f.slots.Do(ctx, func(ctx context.Context) error {
		res, err := f.files.Update(id, &gdrive.File{}).
			Media(content, f.mediaOptions(mimeType)...).
			SupportsAllDrives(true).
			Fields(f.kind.Fields).
			Context(ctx).
			Do()
		if err != nil {
			return itemErr(f.kind.Name, id, err)
		}

		out, err = f.kind.FromDrive(res)

		return err
	})
	if err != nil {
		return File{}, err
	}

	return out, nil
}

func (f *Files) mediaOptions(mimeType string) []googleapi.MediaOption {
	var opts []googleapi.MediaOption

	if mimeType != "" {
		opts = append(opts, googleapi.ContentType(mimeType))
	}

	if f.chunkSize > 0 {
		opts = append(opts, googleapi.ChunkSize(f.chunkSize))
	}

	return opts
}
