// Copyright 2025 Roman Atachiants
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package gateway

import (
	"path"
	"strings"
)

// mimeTable is the fixed extension -> MIME type table from spec §4.10. It
// is intentionally a static map rather than mime.TypeByExtension, which
// consults the host's /etc/mime.types and would make responses depend on
// the machine the gateway runs on.
var mimeTable = map[string]string{
	".htm":  "text/html",
	".html": "text/html",
	".php":  "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".swf":  "application/x-shockwave-flash",
	".flv":  "video/x-flv",
	".png":  "image/png",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml",
}

// mimeType returns the MIME type for key based on its extension
// (case-insensitive), defaulting to "application/text" for anything
// unrecognized, matching the original's mime_type().
func mimeType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := mimeTable[ext]; ok {
		return ct
	}
	return "application/text"
}
