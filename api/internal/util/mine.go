package util

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ImageSubtype returns everything after the last '.' of the path, verbatim.
// A path without a dot yields the whole path; no content sniffing is done.
func ImageSubtype(path string) string {
	return path[strings.LastIndex(path, ".")+1:]
}

// ImageDataURL reads the file at path and wraps it as data:image/<subtype>;base64,<payload>.
func ImageDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return MakeDataURL("image/"+ImageSubtype(path), base64.StdEncoding.EncodeToString(b)), nil
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// DecodeBase64MaybeDataURL декодирует base64. Если это data:URI, вернёт MIME из префикса.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	// Стандартная база64, затем URL-safe на случай вариаций
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	} else {
		return nil, "", err
	}
}

// PickMIME берём явный MIME, затем из data:URI, иначе детектим по байтам.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}
