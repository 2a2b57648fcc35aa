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
	"errors"
	"net/url"
	"strings"
)

// ErrMalformedTarget is returned by Normalize when the request target
// cannot be parsed as a relative URI reference (spec §4.2 rule 1).
var ErrMalformedTarget = errors.New("malformed request")

// ErrUnsupportedDelimiter is returned when a delimiter other than "" or
// "/" is requested (spec §4.2 rule 6).
var ErrUnsupportedDelimiter = errors.New("/ is the only supported delimiter")

// Normalize applies the Path & Query Normalizer (spec §4.2) to a raw HTTP
// request target, stripping the leading "/{bucket}" and producing the
// sanitized key and a case-sensitive query parameter map where duplicate
// keys keep their first-seen value.
func Normalize(rawTarget, bucket string) (key string, params url.Values, err error) {
	u, parseErr := url.ParseRequestURI(rawTarget)
	if parseErr != nil {
		return "", nil, ErrMalformedTarget
	}

	params = firstSeenQuery(u.RawQuery)

	path := u.Path
	if path == "" {
		path = u.EscapedPath()
	}
	prefix := "/" + bucket
	if path == prefix {
		path = ""
	} else if strings.HasPrefix(path, prefix+"/") {
		path = path[len(prefix):]
	}

	if path == "" || strings.HasPrefix(path, "?") {
		path = ""
	} else if strings.HasPrefix(path, "/") {
		path = path[1:]
	}

	if d, ok := params["delimiter"]; ok && len(d) > 0 {
		if d[0] != "" && d[0] != "/" {
			return "", nil, ErrUnsupportedDelimiter
		}
	}

	return path, params, nil
}

// firstSeenQuery parses a raw query string into a map that keeps only the
// first occurrence of each key, per spec §4.2 rule 2. url.Values normally
// accumulates every occurrence; this is deliberately narrower.
func firstSeenQuery(rawQuery string) url.Values {
	out := make(url.Values)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k, err1 := url.QueryUnescape(k)
		v, err2 := url.QueryUnescape(v)
		if err1 != nil || err2 != nil {
			continue
		}
		if _, exists := out[k]; !exists {
			out[k] = []string{v}
		}
	}
	return out
}
