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

// Package gateway is the S3 request gateway: it classifies a parsed HTTP
// request against the subset of the S3 REST API spec §4 describes, and
// turns it into a Response by consulting an objectfs.Store. It is the
// anonymous, single-bucket counterpart to kelindar-s3's SigV4 client - same
// wire shapes, opposite side of the connection.
package gateway

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/kelindar/lobos/internal/objectfs"
)

// Request is the dispatcher's view of a parsed HTTP request. The reactor
// layer is responsible for reading headers, streaming a PUT body directly
// to disk, and filling in PutFile/PutKey before calling Dispatch; everything
// else here is metadata already available once headers are read.
type Request struct {
	Method    string
	Target    string
	KeepAlive bool

	// PutFile is the already-written destination file for a PUT request,
	// opened and streamed to by the reactor before Dispatch is called. Nil
	// for every other method.
	PutFile *os.File
	PutKey  string
}

// Response is the gateway's output: a status, headers, and a body that is
// either an in-memory buffer (XML/text/empty) or an open file (GetObject),
// mirroring spec §3's data model.
type Response struct {
	Status      int
	Header      http.Header
	Body        io.ReadCloser
	ContentSize int64
	KeepAlive   bool
}

func newResponse(status int, keepAlive bool) Response {
	return Response{Status: status, Header: make(http.Header), KeepAlive: keepAlive}
}

func textBody(r Response, contentType string, body []byte) Response {
	r.Header.Set("Content-Type", contentType)
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentSize = int64(len(body))
	return r
}

// Dispatcher binds a bucket name and object store to the classification and
// handler logic of spec §4.5-§4.9.
type Dispatcher struct {
	Bucket string
	Store  *objectfs.Store
}

// New returns a Dispatcher serving bucket out of store.
func New(bucket string, store *objectfs.Store) *Dispatcher {
	return &Dispatcher{Bucket: bucket, Store: store}
}

// Dispatch classifies req and produces a Response, implementing the method
// x target x params table of spec §4.5. Malformed targets and unsupported
// delimiters yield a 400 with a plain-text body (spec §4.2); everything
// else is routed to the matching operation handler.
func (d *Dispatcher) Dispatch(req Request) Response {
	key, params, err := Normalize(req.Target, d.Bucket)
	if err != nil {
		msg := "Malformed request"
		if err == ErrUnsupportedDelimiter {
			msg = "/ is the only supported delimiter."
		}
		return textBody(newResponse(http.StatusBadRequest, req.KeepAlive), "text/html", []byte(msg))
	}

	switch req.Method {
	case http.MethodHead:
		if key == "" {
			return d.headBucket(req.KeepAlive)
		}
		return d.headObject(key, req.KeepAlive)

	case http.MethodPut:
		return d.putObject(req)

	case http.MethodGet:
		if key == "" {
			if _, ok := params["list-type"]; ok {
				return d.listObjects(params.Get("prefix"), req.KeepAlive)
			}
			_, hasVersioning := params["versioning"]
			_, hasLock := params["object-lock"]
			_, hasMaxBuckets := params["max-buckets"]
			if hasVersioning || hasLock || hasMaxBuckets || len(params) == 0 {
				return d.bucketOps(params, req.KeepAlive)
			}
			return textBody(newResponse(http.StatusBadRequest, req.KeepAlive), "text/html", []byte("unsupported req"))
		}
		return d.getObject(key, req.KeepAlive)

	case http.MethodDelete:
		return d.deleteObject(key, req.KeepAlive)

	default:
		return textBody(newResponse(http.StatusBadRequest, req.KeepAlive), "text/html", []byte("unsupported req"))
	}
}

// headBucket answers HEAD / with the bucket-region header the original
// emits for a bare HeadBucket (spec §4.6).
func (d *Dispatcher) headBucket(keepAlive bool) Response {
	r := newResponse(http.StatusOK, keepAlive)
	r.Header.Set("x-amz-bucket-region", "lobos")
	return r
}

// headObject implements HeadObject (spec §4.6): a metadata-only lookup
// that never opens the file, answering 404 NoSuchKey on a miss.
func (d *Dispatcher) headObject(key string, keepAlive bool) Response {
	entry, ok := d.Store.Stat(key)
	if !ok {
		return notFoundKey(key, keepAlive)
	}

	r := newResponse(http.StatusOK, keepAlive)
	r.Header.Set("Content-Type", mimeType(key))
	r.Header.Set("Last-Modified", strconv.FormatInt(entry.ModTime.Unix(), 10))
	r.ContentSize = entry.Size
	return r
}

// getObject implements GetObject (spec §4.7): a metadata check followed by
// opening the file for streaming. Either failure collapses to 404
// NoSuchKey, matching the original's not_found_key_res on both branches.
func (d *Dispatcher) getObject(key string, keepAlive bool) Response {
	if _, ok := d.Store.Stat(key); !ok {
		return notFoundKey(key, keepAlive)
	}

	f, entry, err := d.Store.Open(key)
	if err != nil {
		return notFoundKey(key, keepAlive)
	}

	r := newResponse(http.StatusOK, keepAlive)
	r.Header.Set("Content-Type", mimeType(key))
	r.Header.Set("Last-Modified", entry.ModTime.UTC().Format(http.TimeFormat))
	r.ContentSize = entry.Size
	r.Body = f
	return r
}

// putObject implements PutObject (spec §4.8). The body has already been
// streamed to disk by the reactor by the time Dispatch runs; this commits
// the write (stat + optional index update) and reports the final size via
// x-amz-object-size, as the original does with fs::file_size after the
// write completes.
func (d *Dispatcher) putObject(req Request) Response {
	entry, err := d.Store.Commit(req.PutKey, req.PutFile)
	if err != nil {
		return textBody(newResponse(http.StatusBadRequest, req.KeepAlive), "text/html", []byte("unsupported req"))
	}

	r := newResponse(http.StatusOK, req.KeepAlive)
	r.Header.Set("x-amz-object-size", strconv.FormatInt(entry.Size, 10))
	return r
}

// deleteObject implements DeleteObject (spec §4.9): 204 No Content on
// success, 404 NoSuchKey when the key does not exist.
func (d *Dispatcher) deleteObject(key string, keepAlive bool) Response {
	err := d.Store.Remove(key)
	if err == objectfs.ErrNotFound {
		return notFoundKey(key, keepAlive)
	}
	if err != nil {
		return notFoundKey(key, keepAlive)
	}
	return newResponse(http.StatusNoContent, keepAlive)
}

// listObjects implements ListObjectsV2 (spec §4.4).
func (d *Dispatcher) listObjects(prefix string, keepAlive bool) Response {
	res := d.Store.List(prefix)
	body := buildListBucketResult(d.Bucket, prefix, res)
	return textBody(newResponse(http.StatusOK, keepAlive), "application/xml", body)
}

// bucketOps implements the bucket-level GET / operations: versioning,
// object-lock, and the default bucket listing (spec §4.5/§6).
func (d *Dispatcher) bucketOps(params map[string][]string, keepAlive bool) Response {
	var body []byte
	switch {
	case hasParam(params, "versioning"):
		body = buildVersioningConfiguration()
	case hasParam(params, "object-lock"):
		body = buildObjectLockConfiguration()
	default:
		body = buildListAllMyBucketsResult(d.Bucket)
	}
	return textBody(newResponse(http.StatusOK, keepAlive), "application/xml", body)
}

func hasParam(params map[string][]string, key string) bool {
	_, ok := params[key]
	return ok
}

// notFoundKey renders the 404 NoSuchKey body shared by HeadObject,
// GetObject, and DeleteObject misses (spec §4.6-§4.9, §6).
func notFoundKey(key string, keepAlive bool) Response {
	body := buildError("NoSuchKey", "The resource you requested does not exist", key)
	return textBody(newResponse(http.StatusNotFound, keepAlive), "application/xml", body)
}
