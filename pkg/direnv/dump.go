// Package direnv speaks the dump format of direnv's apply_dump
// command: a JSON object, zlib-deflated, then base64url-encoded.
package direnv

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// Dump encodes env as a blob `direnv apply_dump` accepts, for .envrc
// integration.
func Dump(env map[string]string) (string, error) {
	blob, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "encoding environment")
	}

	var deflated bytes.Buffer

	zw := zlib.NewWriter(&deflated)
	if _, err := zw.Write(blob); err != nil {
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(deflated.Bytes()), nil
}
