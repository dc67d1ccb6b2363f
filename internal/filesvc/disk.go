package filesvc

import (
	"context"
	"os"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
)

// Disk reads request files straight from the filesystem.
type Disk struct{}

func (Disk) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "read %s", path)
	}
	return string(data), nil
}
