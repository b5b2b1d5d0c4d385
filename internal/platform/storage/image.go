package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrImageTooLarge   = errors.New("image exceeds the upload size limit")
	ErrUnsupportedType = errors.New("image must be JPEG, PNG, GIF or WebP")
	ErrEmptyImage      = errors.New("image is empty")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Image is an upload whose type was taken from its bytes, not its filename.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

func (i *Image) Reader() io.Reader { return bytes.NewReader(i.Data) }

// ReadImage reads at most maxBytes from r and sniffs the content type.
func ReadImage(r io.Reader, maxBytes int64) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedType, contentType)
	}
	return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
}

// ContentTypeFor guesses a content type for serving a stored object.
func ContentTypeFor(data []byte) string {
	return http.DetectContentType(data)
}
