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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kelindar/lobos/internal/objectfs"
)

func TestBuildListBucketResult_ContentsAndPrefixes(t *testing.T) {
	res := objectfs.ListResult{
		Contents: []objectfs.Entry{
			{Key: "a.txt", Size: 42, ModTime: time.Unix(1000, 0)},
		},
		CommonPrefixes: []string{"sub/"},
	}
	body := string(buildListBucketResult("mybucket", "", res))

	assert.Contains(t, body, "<Name>mybucket</Name>")
	assert.Contains(t, body, "<Key>a.txt</Key>")
	assert.Contains(t, body, "<Size>42</Size>")
	assert.Contains(t, body, "<LastModified>1000</LastModified>")
	assert.Contains(t, body, "<CommonPrefixes><Prefix>sub/</Prefix></CommonPrefixes>")
	assert.Contains(t, body, "<MaxKeys>1000</MaxKeys>")
}

func TestBuildListBucketResult_EscapesKeys(t *testing.T) {
	res := objectfs.ListResult{
		Contents: []objectfs.Entry{{Key: "a&b<c>.txt", Size: 1}},
	}
	body := string(buildListBucketResult("b", "", res))
	assert.Contains(t, body, "a&amp;b&lt;c&gt;.txt")
	assert.NotContains(t, body, "a&b<c>.txt")
}

func TestBuildError_IncludesCodeMessageResource(t *testing.T) {
	body := string(buildError("NoSuchKey", "The resource you requested does not exist", "some/key"))
	assert.Contains(t, body, "<Code>NoSuchKey</Code>")
	assert.Contains(t, body, "<Resource>some/key</Resource>")
	assert.Contains(t, body, "<RequestId>"+requestID+"</RequestId>")
}

func TestBuildVersioningConfiguration(t *testing.T) {
	body := string(buildVersioningConfiguration())
	assert.Contains(t, body, "<Status>Suspended</Status>")
	assert.Contains(t, body, "<MfaDelete>Disabled</MfaDelete>")
}

func TestBuildListAllMyBucketsResult(t *testing.T) {
	body := string(buildListAllMyBucketsResult("mybucket"))
	assert.Contains(t, body, "<Name>mybucket</Name>")
	assert.Contains(t, body, "<Owner><ID>lobos</ID></Owner>")
}
