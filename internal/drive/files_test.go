package drive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_CreatesWithContent(t *testing.T) {
	s, fake := newTestSession(t)
	parent := fake.AddFolder("Reports")

	files := NewFiles(s, NewUploadSlots(1, testLogger(t)))

	got, err := files.Upload(context.Background(), "q1.pdf", strings.NewReader("%PDF-1.7"), "application/pdf", parent)
	require.NoError(t, err)

	assert.Equal(t, "q1.pdf", got.Name)
	assert.Equal(t, "pdf", got.Extension)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Equal(t, []string{parent}, got.Parents)

	rec, ok := fake.Item(got.ID)
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.7", string(rec.Content))

	last := fake.Requests()[len(fake.Requests())-1]
	assert.Equal(t, "true", last.Query["supportsAllDrives"])
	assert.Equal(t, "multipart", last.Query["uploadType"])
}

func TestUpload_WithoutSlots(t *testing.T) {
	s, fake := newTestSession(t)

	got, err := NewFiles(s, nil).Upload(context.Background(), "a.txt", strings.NewReader("hi"), "text/plain", "")
	require.NoError(t, err)

	rec, ok := fake.Item(got.ID)
	require.True(t, ok)
	assert.Equal(t, "hi", string(rec.Content))
	assert.Empty(t, rec.Parents)
}

func TestUpload_MissingParent(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := NewFiles(s, nil).Upload(context.Background(), "a.txt", strings.NewReader("hi"), "text/plain", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpload_CanceledContext(t *testing.T) {
	s, _ := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFiles(s, NewUploadSlots(1, testLogger(t))).
		Upload(ctx, "a.txt", strings.NewReader("hi"), "text/plain", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplaceContent(t *testing.T) {
	s, fake := newTestSession(t)
	parent := fake.AddFolder("Reports")

	files := NewFiles(s, NewUploadSlots(2, testLogger(t)))

	orig, err := files.Upload(context.Background(), "notes.txt", strings.NewReader("v1"), "text/plain", parent)
	require.NoError(t, err)

	got, err := files.ReplaceContent(context.Background(), orig.ID, strings.NewReader("v2"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, "notes.txt", got.Name)
	assert.Equal(t, []string{parent}, got.Parents)

	rec, ok := fake.Item(orig.ID)
	require.True(t, ok)
	assert.Equal(t, "v2", string(rec.Content))
}

func TestReplaceContent_Missing(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := NewFiles(s, nil).ReplaceContent(context.Background(), "missing", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEmpty(t *testing.T) {
	s, fake := newTestSession(t)

	got, err := NewFiles(s, nil).CreateEmpty(context.Background(), "blank.docx", MimeTypeFor("blank.docx"), "")
	require.NoError(t, err)
	assert.Equal(t, "docx", got.Extension)

	rec, ok := fake.Item(got.ID)
	require.True(t, ok)
	assert.Empty(t, rec.Content)
}

func TestMediaOptions(t *testing.T) {
	f := &Files{}
	assert.Empty(t, f.mediaOptions(""))
	assert.Len(t, f.mediaOptions("text/plain"), 1)

	f.chunkSize = 1 << 20
	assert.Len(t, f.mediaOptions("text/plain"), 2)
}
