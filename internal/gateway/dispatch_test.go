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
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/lobos/internal/objectfs"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi there"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested"), 0o644))

	store := objectfs.New(dir, nil)
	return New("mybucket", store), dir
}

func TestDispatch_HeadBucket(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodHead, Target: "/mybucket"})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "lobos", resp.Header.Get("x-amz-bucket-region"))
}

func TestDispatch_HeadObject_Found(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodHead, Target: "/mybucket/hello.txt"})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(8), resp.ContentSize)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestDispatch_HeadObject_Missing(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodHead, Target: "/mybucket/nope.txt"})
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDispatch_GetObject_Found(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodGet, Target: "/mybucket/hello.txt"})
	require.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(data))
}

func TestDispatch_GetObject_Missing(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodGet, Target: "/mybucket/nope.txt"})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
}

func TestDispatch_ListBucketDefault(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodGet, Target: "/mybucket"})
	require.Equal(t, http.StatusOK, resp.Status)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ListAllMyBucketsResult")
}

func TestDispatch_ListObjectsV2(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodGet, Target: "/mybucket?list-type=2&prefix="})
	require.Equal(t, http.StatusOK, resp.Status)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "ListBucketResult")
	assert.Contains(t, body, "<Key>hello.txt</Key>")
	assert.Contains(t, body, "<CommonPrefixes><Prefix>sub/</Prefix></CommonPrefixes>")
}

func TestDispatch_DeleteObject(t *testing.T) {
	d, dir := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodDelete, Target: "/mybucket/hello.txt"})
	assert.Equal(t, http.StatusNoContent, resp.Status)

	_, err := os.Stat(filepath.Join(dir, "hello.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDispatch_DeleteObject_Missing(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodDelete, Target: "/mybucket/nope.txt"})
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDispatch_PutObject(t *testing.T) {
	d, dir := newTestDispatcher(t)
	f, err := d.Store.Create("new.txt")
	require.NoError(t, err)
	_, err = f.WriteString("written via put")
	require.NoError(t, err)

	resp := d.Dispatch(Request{
		Method:    http.MethodPut,
		Target:    "/mybucket/new.txt",
		PutFile:   f,
		PutKey:    "new.txt",
		KeepAlive: true,
	})
	f.Close()

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "15", resp.Header.Get("x-amz-object-size"))

	data, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "written via put", string(data))
}

func TestDispatch_UnsupportedDelimiterIsBadRequest(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodGet, Target: "/mybucket?delimiter=,"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestDispatch_UnsupportedMethod(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Request{Method: http.MethodPatch, Target: "/mybucket/hello.txt"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}
