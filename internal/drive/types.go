package drive

import (
	"fmt"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// FolderMimeType is the provider's reserved MIME type for folders. It is the
// only thing that distinguishes a folder from a file.
const FolderMimeType = "application/vnd.google-apps.folder"

// Link templates for items. The provider serves these for any item the
// caller can see, so they are derived from the ID rather than requested.
const (
	fileLinkFmt     = "https://drive.google.com/file/d/%s"
	downloadLinkFmt = "https://drive.google.com/uc?export=download&id=%s"
	folderLinkFmt   = "https://drive.google.com/drive/folders/%s"
)

// Projections. baseFields are common to both kinds.
const (
	baseFields   = "id, name, parents"
	fileFields   = baseFields + ", fileExtension, mimeType"
	folderFields = baseFields + ", mimeType"
)

// Base holds the attributes every archive item has. parents is ordered; the
// first entry is treated as the canonical parent.
type Base struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parents []string `json:"parents"`
}

// Archive returns the shared attributes. It makes File and Folder satisfy Item.
func (b Base) Archive() Base { return b }

// Item is implemented by File and Folder.
type Item interface {
	Archive() Base
}

// File is a non-folder item.
type File struct {
	Base
	Extension    string `json:"extension"`
	MimeType     string `json:"mimeType"`
	Link         string `json:"link"`
	DownloadLink string `json:"downloadLink"`
}

// Folder is an item whose MIME type is FolderMimeType.
type Folder struct {
	Base
	Link string `json:"link"`
}

// Kind describes one item variant to the generic Accessor: how to project
// it, how to recognize it, and how to build it from a provider record.
type Kind[T Item] struct {
	Name      string // "File" or "Folder", used in errors
	IsFolder  bool
	Fields    googleapi.Field
	FromDrive func(*gdrive.File) (T, error)
}

// Matches reports whether a provider record belongs to this kind.
func (k Kind[T]) Matches(f *gdrive.File) bool {
	return (f.MimeType == FolderMimeType) == k.IsFolder
}

// FileKind describes File items.
var FileKind = Kind[File]{
	Name:      "File",
	IsFolder:  false,
	Fields:    fileFields,
	FromDrive: fileFromDrive,
}

// FolderKind describes Folder items.
var FolderKind = Kind[Folder]{
	Name:      "Folder",
	IsFolder:  true,
	Fields:    folderFields,
	FromDrive: folderFromDrive,
}

// baseFromDrive checks the attributes every item must carry and copies them.
func baseFromDrive(f *gdrive.File) (Base, error) {
	if f == nil {
		return Base{}, fmt.Errorf("%w: nil record", ErrMalformedItem)
	}

	if f.Id == "" || f.Name == "" {
		return Base{}, fmt.Errorf("%w: record missing id or name (id=%q)", ErrMalformedItem, f.Id)
	}

	parents := make([]string, len(f.Parents))
	copy(parents, f.Parents)

	return Base{ID: f.Id, Name: f.Name, Parents: parents}, nil
}

func fileFromDrive(f *gdrive.File) (File, error) {
	base, err := baseFromDrive(f)
	if err != nil {
		return File{}, err
	}

	if f.MimeType == "" {
		return File{}, fmt.Errorf("%w: file %q missing mimeType", ErrMalformedItem, f.Id)
	}

	return File{
		Base:         base,
		Extension:    f.FileExtension,
		MimeType:     f.MimeType,
		Link:         fmt.Sprintf(fileLinkFmt, f.Id),
		DownloadLink: fmt.Sprintf(downloadLinkFmt, f.Id),
	}, nil
}

func folderFromDrive(f *gdrive.File) (Folder, error) {
	base, err := baseFromDrive(f)
	if err != nil {
		return Folder{}, err
	}

	return Folder{
		Base: base,
		Link: fmt.Sprintf(folderLinkFmt, f.Id),
	}, nil
}
