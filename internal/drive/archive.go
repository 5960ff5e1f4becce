package drive

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// DefaultPageSize is the number of items List returns when the caller does
// not ask for a size. Only the first page is ever read.
const DefaultPageSize = 10

// Accessor runs list/get/create/update/delete for one item kind against a
// Session. It holds no state beyond its configuration.
type Accessor[T Item] struct {
	kind   Kind[T]
	files  *gdrive.FilesService
	logger *slog.Logger
}

// NewAccessor returns an Accessor for kind bound to s.
func NewAccessor[T Item](s *Session, kind Kind[T]) *Accessor[T] {
	return &Accessor[T]{
		kind:   kind,
		files:  s.files,
		logger: s.logger,
	}
}

// kindQuery selects items of this kind by MIME type.
func (a *Accessor[T]) kindQuery() string {
	op := "!="
	if a.kind.IsFolder {
		op = "="
	}

	return fmt.Sprintf("mimeType %s '%s'", op, FolderMimeType)
}

// List returns up to pageSize items of this kind from the first page of
// results. It does not follow nextPageToken. pageSize <= 0 means
// DefaultPageSize.
func (a *Accessor[T]) List(ctx context.Context, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	a.logger.Debug("listing items",
		slog.String("kind", a.kind.Name),
		slog.Int("page_size", pageSize),
	)

	res, err := a.files.List().
		Q(a.kindQuery()).
		PageSize(int64(pageSize)).
		Fields("nextPageToken", googleapi.Field("files("+string(a.kind.Fields)+")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive: listing %s items: %w", strings.ToLower(a.kind.Name), wrapAPIError(err))
	}

	items := make([]T, 0, len(res.Files))

	for _, f := range res.Files {
		item, convErr := a.kind.FromDrive(f)
		if convErr != nil {
			return nil, convErr
		}

		items = append(items, item)
	}

	if len(items) > pageSize {
		items = items[:pageSize]
	}

	a.logger.Debug("listed items",
		slog.String("kind", a.kind.Name),
		slog.Int("count", len(items)),
		slog.Bool("more", res.NextPageToken != ""),
	)

	return items, nil
}

// Get fetches one item by ID. An item of the other kind is reported as
// not found.
func (a *Accessor[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	a.logger.Debug("getting item",
		slog.String("kind", a.kind.Name),
		slog.String("item_id", id),
	)

	f, err := a.files.Get(id).Fields(a.kind.Fields).Context(ctx).Do()
	if err != nil {
		return zero, itemErr(a.kind.Name, id, err)
	}

	if f.MimeType != "" && !a.kind.Matches(f) {
		return zero, &ItemError{Kind: a.kind.Name, ID: id, Err: ErrNotFound}
	}

	return a.kind.FromDrive(f)
}

// Delete permanently removes an item. There is no trash step.
func (a *Accessor[T]) Delete(ctx context.Context, id string) error {
	a.logger.Info("deleting item",
		slog.String("kind", a.kind.Name),
		slog.String("item_id", id),
	)

	if err := a.files.Delete(id).Context(ctx).Do(); err != nil {
		return itemErr(a.kind.Name, id, err)
	}

	return nil
}

// Update renames and/or moves an item in one provider call. When
// newParentID is set every current parent is removed, so the item ends up
// with exactly one parent. Reading the current parents and writing the
// update are two calls; a concurrent reparent in between is not detected.
// With both name and newParentID empty the update is sent with an empty body.
// An item of the other kind is reported as not found and left untouched.
func (a *Accessor[T]) Update(ctx context.Context, id, name, newParentID string) (T, error) {
	var zero T

	a.logger.Info("updating item",
		slog.String("kind", a.kind.Name),
		slog.String("item_id", id),
		slog.String("new_name", name),
		slog.String("new_parent_id", newParentID),
	)

	current, err := a.files.Get(id).Fields("parents, mimeType").Context(ctx).Do()
	if err != nil {
		return zero, itemErr(a.kind.Name, id, err)
	}

	if current.MimeType != "" && !a.kind.Matches(current) {
		return zero, &ItemError{Kind: a.kind.Name, ID: id, Err: ErrNotFound}
	}

	body := &gdrive.File{}
	if name != "" {
		body.Name = norm.NFC.String(name)
	}

	call := a.files.Update(id, body).Fields(a.kind.Fields).Context(ctx)

	if newParentID != "" {
		call = call.AddParents(newParentID)

		stale := slices.DeleteFunc(slices.Clone(current.Parents), func(p string) bool {
			return p == newParentID
		})
		if len(stale) > 0 {
			call = call.RemoveParents(strings.Join(stale, ","))
		}
	}

	f, err := call.Do()
	if err != nil {
		return zero, itemErr(a.kind.Name, id, err)
	}

	return a.kind.FromDrive(f)
}

// Create makes a metadata-only item. An empty mimeType on a folder accessor
// becomes FolderMimeType; a non-empty parentID becomes the sole parent.
func (a *Accessor[T]) Create(ctx context.Context, name, parentID, mimeType string) (T, error) {
	var zero T

	a.logger.Info("creating item",
		slog.String("kind", a.kind.Name),
		slog.String("name", name),
		slog.String("parent_id", parentID),
	)

	f, err := a.files.Create(a.metadata(name, parentID, mimeType)).
		Fields(a.kind.Fields).
		Context(ctx).
		Do()
	if err != nil {
		return zero, a.createErr(parentID, err)
	}

	return a.kind.FromDrive(f)
}

// metadata builds the request body shared by Create and content uploads.
func (a *Accessor[T]) metadata(name, parentID, mimeType string) *gdrive.File {
	meta := &gdrive.File{Name: norm.NFC.String(name)}

	switch {
	case mimeType != "":
		meta.MimeType = mimeType
	case a.kind.IsFolder:
		meta.MimeType = FolderMimeType
	}

	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	return meta
}

// createErr attributes a failed create to the parent folder, which is the
// only ID the caller supplied.
func (a *Accessor[T]) createErr(parentID string, err error) error {
	if parentID != "" {
		return itemErr(FolderKind.Name, parentID, err)
	}

	return fmt.Errorf("drive: creating %s: %w", strings.ToLower(a.kind.Name), wrapAPIError(err))
}
