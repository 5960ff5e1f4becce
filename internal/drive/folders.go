package drive

import (
	"context"
	"fmt"
	"log/slog"
)

// RootID is the ID reported in errors when no root folder can be found.
const RootID = "root"

// Folders is the Accessor for folders plus folder-only operations.
type Folders struct {
	*Accessor[Folder]
	session *Session
}

// NewFolders returns a folder accessor bound to s.
func NewFolders(s *Session) *Folders {
	return &Folders{
		Accessor: NewAccessor(s, FolderKind),
		session:  s,
	}
}

// ListFiles returns the files whose first parent is folderID. It filters
// the first page of all files client-side, so it sees at most
// DefaultPageSize files in total.
func (f *Folders) ListFiles(ctx context.Context, folderID string) ([]File, error) {
	all, err := NewFiles(f.session, nil).List(ctx, DefaultPageSize)
	if err != nil {
		return nil, err
	}

	children := make([]File, 0, len(all))

	for _, file := range all {
		if len(file.Parents) > 0 && file.Parents[0] == folderID {
			children = append(children, file)
		}
	}

	f.logger.Debug("filtered files by folder",
		slog.String("folder_id", folderID),
		slog.Int("scanned", len(all)),
		slog.Int("matched", len(children)),
	)

	return children, nil
}

// Root returns the first listed folder with no parents. A failed listing is
// returned as is; only an empty result is ErrNotFound.
func (f *Folders) Root(ctx context.Context) (Folder, error) {
	folders, err := f.List(ctx, DefaultPageSize)
	if err != nil {
		return Folder{}, fmt.Errorf("drive: locating root folder: %w", err)
	}

	for _, folder := range folders {
		if len(folder.Parents) == 0 {
			return folder, nil
		}
	}

	return Folder{}, &ItemError{Kind: FolderKind.Name, ID: RootID, Err: ErrNotFound}
}

// CreateFolder creates a folder, optionally under parentID.
func (f *Folders) CreateFolder(ctx context.Context, name, parentID string) (Folder, error) {
	return f.Create(ctx, name, parentID, "")
}
