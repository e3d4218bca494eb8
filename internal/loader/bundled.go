// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package loader

import (
	"embed"
	"sort"
)

//go:embed contexts/*.jsonld
var contextFS embed.FS

// bundledFiles maps well-known context URLs to embedded copies so that the
// common credential contexts resolve without network access.
var bundledFiles = map[string]string{
	"https://www.w3.org/ns/credentials/v2":  "contexts/credentials-v2.jsonld",
	"https://www.w3.org/2018/credentials/v1": "contexts/credentials-v1.jsonld",
}

func bundled(u string) ([]byte, bool) {
	name, ok := bundledFiles[u]
	if !ok {
		return nil, false
	}
	data, err := contextFS.ReadFile(name)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Bundled lists the context URLs served from embedded copies.
func Bundled() []string {
	urls := make([]string, 0, len(bundledFiles))
	for u := range bundledFiles {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
