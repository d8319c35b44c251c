// Package storage holds the upload layer shared by all chain backends:
// mint artifacts (images and metadata documents) are pinned to IPFS and
// referenced by ipfs:// URIs from the created token.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	ipfsapi "github.com/ipfs/go-ipfs-api"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
	"github.com/martinw82/memeforge-09062025/pkg/utils"
)

// IPFSUploader stores mint artifacts on an IPFS node.
type IPFSUploader struct {
	shell *ipfsapi.Shell
}

// NewIPFSUploader creates an uploader against the node API at apiURL
// (constants.DefaultIPFSAPIURL for a local node).
func NewIPFSUploader(apiURL string) *IPFSUploader {
	client := &http.Client{
		Timeout: constants.UploadTimeout,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
			ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
		},
	}
	return &IPFSUploader{shell: ipfsapi.NewShellWithClient(apiURL, client)}
}

var _ chains.Uploader = (*IPFSUploader)(nil)

// UploadImage implements chains.Uploader. The payload is whatever the editor
// handed over: raw bytes, bare base64, or a data URI.
func (u *IPFSUploader) UploadImage(ctx context.Context, imagePayload []byte) (string, error) {
	data, err := utils.DecodeImagePayload(imagePayload)
	if err != nil {
		return "", fmt.Errorf("invalid image payload: %w", err)
	}
	return u.add(ctx, data)
}

// UploadMetadata implements chains.Uploader.
func (u *IPFSUploader) UploadMetadata(ctx context.Context, metadata types.NFTMetadata) (string, error) {
	doc, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return u.add(ctx, doc)
}

func (u *IPFSUploader) add(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cid, err := u.shell.Add(bytes.NewReader(data), ipfsapi.Pin(true))
	if err != nil {
		return "", fmt.Errorf("ipfs add failed: %w", err)
	}
	return "ipfs://" + cid, nil
}
