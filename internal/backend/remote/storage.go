package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"studia/internal/backend"
)

func objectPath(bucket, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, opts backend.UploadOptions) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.do(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		path:        "/storage/v1/object/" + objectPath(bucket, path),
		body:        data,
		contentType: contentType,
		headers:     map[string]string{"x-upsert": strconv.FormatBool(opts.Upsert)},
		token:       token,
	}, nil)
}

func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, path)
}
