package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

var (
	documentExts = []string{".pdf", ".jpg", ".jpeg", ".png"}
	imageExts    = []string{".jpg", ".jpeg", ".png"}
)

// store writes up under dir/<uuid>.<ext> and returns the stored path with
// a function that deletes it again. Callers defer the cleanup and disarm it
// once the database write has succeeded.
func store(ctx context.Context, disk storage.Disk, dir string, up Upload, allowed []string) (string, func(), error) {
	if disk == nil {
		return "", nil, fmt.Errorf("uploads: no storage disk configured")
	}
	ext := strings.ToLower(path.Ext(up.Filename))
	ok := false
	for _, a := range allowed {
		if ext == a {
			ok = true
			break
		}
	}
	if !ok {
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = strings.TrimPrefix(a, ".")
		}
		return "", nil, invalid("file", "The file must be one of: "+strings.Join(names, ", ")+".")
	}

	name := path.Join(dir, uuid.NewString()+ext)
	if err := disk.Put(ctx, name, up.Body, contentTypes[ext]); err != nil {
		return "", nil, fmt.Errorf("uploads: put %s: %w", name, err)
	}
	cleanup := func() {
		if err := disk.Delete(context.WithoutCancel(ctx), name); err != nil {
			logger.WithCtx(ctx).Warn("uploads: cleanup failed", "path", name, "error", err)
		}
	}
	return name, cleanup, nil
}
