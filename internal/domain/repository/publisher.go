package repository

import (
	"context"
)

// UploadedAsset is the raw upload receipt returned by the publisher's
// upload server, needed to register the asset afterwards.
type UploadedAsset struct {
	Server int
	Photo  string
	Hash   string
}

// Publisher is the social wall the pipeline posts approved deals to.
// The four calls mirror the wall's multi-step photo flow: obtain an upload
// target, push the image bytes, register the upload as a wall photo, then
// submit the post referencing it.
type Publisher interface {
	RequestUploadTarget(ctx context.Context) (string, error)
	UploadAsset(ctx context.Context, target, name string, data []byte) (*UploadedAsset, error)
	RegisterAsset(ctx context.Context, asset *UploadedAsset) (string, error)
	Post(ctx context.Context, text, attachment string) error
}
